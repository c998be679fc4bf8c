package domain

import "time"

// Form is an administrator-defined schema of ordered fields.
type Form struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	UUID           string    `json:"uuid"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	IsActive       bool      `json:"isActive"`
	IsDeleted      bool      `json:"isDeleted"`
	DuplicatedFrom *int64    `json:"duplicatedFrom,omitempty"`
	Fields         []Field   `json:"fields,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Field is one typed slot of a Form. Rank is 0 when the field has no active rank.
type Field struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	FormID       int64     `json:"formId"`
	FieldType    FieldType `json:"fieldType"`
	Label        string    `json:"label"`
	Slug         string    `json:"slug"`
	UUID         string    `json:"uuid"`
	Description  string    `json:"description"`
	Optional     bool      `json:"optional"`
	DefaultValue string    `json:"defaultValue"`
	ExampleValue string    `json:"exampleValue"`
	SelectValues string    `json:"selectValues"`
	IsDeleted    bool      `json:"isDeleted"`
	Rank         int       `json:"rank"`
}

// FieldInput is the admin-supplied description of a field.
type FieldInput struct {
	FieldTypeID  int64  `json:"fieldTypeId" validate:"required"`
	UUID         string `json:"uuid"`
	Label        string `json:"label" validate:"required"`
	Description  string `json:"description"`
	Optional     bool   `json:"optional"`
	DefaultValue string `json:"defaultValue"`
	ExampleValue string `json:"exampleValue"`
	SelectValues string `json:"selectValues"`
}

// FormInput is the admin-supplied description of a form.
type FormInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// FormPermission grants a profile the right to write and read a form's data.
type FormPermission struct {
	FormID    int64 `json:"formId"`
	ProfileID int64 `json:"profileId"`
	IsActive  bool  `json:"isActive"`
}

// FieldPlan is the outcome of reconciling a form's live fields with a new list.
// Order holds the uuid of every field of the new list, in rank order.
type FieldPlan struct {
	Update []Field
	Delete []int64
	Create []Field
	Order  []string
}
