package core

import "time"

// ExcludedStatus is the status value that removes a row from the mirror.
const ExcludedStatus = "GRADUATED"

// Field identifies a DomainRecord field fed by a column.
type Field string

const (
	FieldName            Field = "name"
	FieldPersona         Field = "persona"
	FieldBirthday        Field = "birthday"
	FieldAffiliation     Field = "affiliation"
	FieldAffiliationLogo Field = "affiliationLogo"
)

// TextTransform converts a non-empty cell's text. ok=false leaves the field
// unset.
type TextTransform func(string) (string, bool)

// ColumnSpec maps one optional column to a record field.
type ColumnSpec struct {
	Index     int
	Field     Field
	Transform TextTransform // nil keeps the text as is
}

// ColumnLayout is the fixed index-to-field mapping applied to every row.
// Indices are 0-based.
type ColumnLayout struct {
	KeyColumn    int
	KeyTransform TextTransform
	Columns      []ColumnSpec
	StatusColumn int // -1 disables exclusion
}

// DefaultLayout is the layout of the talent sheet.
//
//	A  key (channel id, HYPERLINK display text)
//	B  name
//	H  persona
//	L  birthday ("day month-name")
//	M  affiliation, also the status column
//	N  affiliation logo (HYPERLINK display text)
var DefaultLayout = ColumnLayout{
	KeyColumn:    0,
	KeyTransform: quoted,
	Columns: []ColumnSpec{
		{Index: 1, Field: FieldName, Transform: identity},
		{Index: 7, Field: FieldPersona, Transform: identity},
		{Index: 11, Field: FieldBirthday},
		{Index: 12, Field: FieldAffiliation, Transform: identity},
		{Index: 13, Field: FieldAffiliationLogo, Transform: quoted},
	},
	StatusColumn: 12,
}

// MapRow extracts a DomainRecord from row. It returns false when the row has
// no key column or the key is empty; such rows are skipped, not errors.
func (l ColumnLayout) MapRow(row Row) (DomainRecord, bool) {
	keyCell, ok := row.Cell(l.KeyColumn)
	if !ok || keyCell.IsEmpty() {
		return DomainRecord{}, false
	}

	keyFn := l.KeyTransform
	if keyFn == nil {
		keyFn = identity
	}
	key, ok := keyFn(keyCell.String())
	if !ok || key == "" {
		return DomainRecord{}, false
	}

	rec := DomainRecord{Key: key}

	for _, col := range l.Columns {
		text, present := presentText(row, col.Index)
		if !present {
			continue
		}
		fn := col.Transform
		if fn == nil {
			fn = identity
		}
		v, ok := fn(text)
		if !ok {
			continue
		}
		rec.set(col.Field, v)
	}

	if text, present := presentText(row, l.StatusColumn); present {
		rec.Excluded = text == ExcludedStatus
	}

	return rec, true
}

// MapRows maps every row and drops the rejected ones. Excluded records are
// kept; callers decide what exclusion means.
func (l ColumnLayout) MapRows(rows []Row) []DomainRecord {
	out := make([]DomainRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := l.MapRow(row); ok {
			out = append(out, rec)
		}
	}
	return out
}

// presentText returns the cell text when the column exists and is non-empty.
func presentText(row Row, idx int) (string, bool) {
	c, ok := row.Cell(idx)
	if !ok || c.IsEmpty() {
		return "", false
	}
	return c.String(), true
}

func (r *DomainRecord) set(f Field, v string) {
	switch f {
	case FieldName:
		r.Name = ptr(v)
	case FieldPersona:
		r.Persona = ptr(v)
	case FieldAffiliation:
		r.Affiliation = ptr(v)
	case FieldAffiliationLogo:
		r.AffiliationLogo = ptr(v)
	case FieldBirthday:
		if t, ok := ParseBirthday(v); ok {
			r.Birthday = ptr(t)
		}
	}
}

// BirthdayString formats a stored birthday back to the source layout.
func BirthdayString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02 January")
}
