package domain

// FieldKind is the discriminator of a FieldType.
type FieldKind string

const (
	KindSimpleText FieldKind = "simple-text"
	KindLongText   FieldKind = "long-text"
	KindEmail      FieldKind = "email"
	KindUUID       FieldKind = "uuid"
	KindNumber     FieldKind = "number"
	KindInteger    FieldKind = "integer"
	KindFloat      FieldKind = "float"
	KindDate       FieldKind = "date"
	KindTime       FieldKind = "time"
	KindDatetime   FieldKind = "datetime"
	KindBoolean    FieldKind = "boolean"
	KindSelect     FieldKind = "select"
)

func (k FieldKind) IsValid() bool {
	switch k {
	case KindSimpleText, KindLongText, KindEmail, KindUUID,
		KindNumber, KindInteger, KindFloat,
		KindDate, KindTime, KindDatetime,
		KindBoolean, KindSelect:
		return true
	default:
		return false
	}
}

// FieldType is immutable reference data created at seed time.
type FieldType struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Label       string    `json:"label"`
	Value       FieldKind `json:"value"`
	Description string    `json:"description"`
}

var DefaultFieldTypes = []FieldType{
	{Label: "Simple Text", Value: KindSimpleText},
	{Label: "Long Text", Value: KindLongText},
	{Label: "Email", Value: KindEmail},
	{Label: "Uuid", Value: KindUUID},
	{Label: "Number", Value: KindNumber},
	{Label: "Integer", Value: KindInteger},
	{Label: "Float", Value: KindFloat},
	{Label: "Date", Value: KindDate},
	{Label: "Time", Value: KindTime},
	{Label: "Datetime", Value: KindDatetime},
	{Label: "Boolean", Value: KindBoolean},
	{Label: "Select", Value: KindSelect},
}
