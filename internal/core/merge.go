package core

import "time"

// Merge returns existing with every field present in incoming applied.
// Fields absent from incoming (nil) keep their stored value; nothing is ever
// cleared. Timestamps are left to the store.
func Merge(existing PersistedRecord, incoming DomainRecord) PersistedRecord {
	out := existing
	if incoming.Key != "" {
		out.Key = incoming.Key
	}
	if incoming.Name != nil {
		out.Name = ptr(*incoming.Name)
	}
	if incoming.Persona != nil {
		out.Persona = ptr(*incoming.Persona)
	}
	if incoming.Birthday != nil {
		out.Birthday = ptr(*incoming.Birthday)
	}
	if incoming.Affiliation != nil {
		out.Affiliation = ptr(*incoming.Affiliation)
	}
	if incoming.AffiliationLogo != nil {
		out.AffiliationLogo = ptr(*incoming.AffiliationLogo)
	}
	return out
}

// NewPersisted builds the record a store creates for rec.
func NewPersisted(rec DomainRecord) PersistedRecord {
	return Merge(PersistedRecord{Key: rec.Key}, rec)
}

// Changed reports whether merging incoming into existing alters any field.
// Stores use it to keep idempotent passes from touching UpdatedAt.
func Changed(existing PersistedRecord, incoming DomainRecord) bool {
	merged := Merge(existing, incoming)
	return !equalStr(existing.Name, merged.Name) ||
		!equalStr(existing.Persona, merged.Persona) ||
		!equalStr(existing.Affiliation, merged.Affiliation) ||
		!equalStr(existing.AffiliationLogo, merged.AffiliationLogo) ||
		!equalDate(existing.Birthday, merged.Birthday)
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
