package models

import (
	"time"
)

type FieldType struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Code        string    `json:"code" gorm:"type:text;not null"`
	Label       string    `json:"label" gorm:"type:text;not null"`
	Value       string    `json:"value" gorm:"type:text;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	Status      bool      `json:"status" gorm:"type:boolean;not null;default:true"`
	CDate       time.Time `json:"cdate" gorm:"->;<-:create;not null;autoCreateTime"`
}

type Form struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Code           string    `json:"code" gorm:"type:text;not null"`
	UUID           string    `json:"uuid" gorm:"type:text;not null;uniqueIndex"`
	Name           string    `json:"name" gorm:"type:text;not null"`
	Description    string    `json:"description" gorm:"type:text"`
	IsActive       bool      `json:"isActive" gorm:"type:boolean;not null;default:true"`
	IsDeleted      bool      `json:"isDeleted" gorm:"type:boolean;not null;default:false;index"`
	DuplicatedFrom *int64    `json:"duplicatedFrom" gorm:"index"`
	Source         *Form     `json:"-" gorm:"foreignKey:DuplicatedFrom;references:ID;constraint:OnDelete:SET NULL;"`
	Fields         []Field   `json:"fields" gorm:"foreignKey:FormID;references:ID"`
	CDate          time.Time `json:"cdate" gorm:"->;<-:create;not null;autoCreateTime"`
	MDate          time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

// Field slugs and uuids are unique among the live fields of a form.
type Field struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Code         string     `json:"code" gorm:"type:text;not null"`
	FormID       int64      `json:"formId" gorm:"not null;index;uniqueIndex:uniq_field_form_slug,where:is_deleted = false;uniqueIndex:uniq_field_form_uuid,where:is_deleted = false"`
	Form         Form       `json:"-" gorm:"foreignKey:FormID;references:ID;constraint:OnDelete:CASCADE;"`
	FieldTypeID  int64      `json:"fieldTypeId" gorm:"not null"`
	FieldType    FieldType  `json:"fieldType" gorm:"foreignKey:FieldTypeID;references:ID;constraint:OnDelete:RESTRICT;"`
	Label        string     `json:"label" gorm:"type:text;not null"`
	Slug         string     `json:"slug" gorm:"type:text;not null;uniqueIndex:uniq_field_form_slug,where:is_deleted = false"`
	UUID         string     `json:"uuid" gorm:"type:text;not null;uniqueIndex:uniq_field_form_uuid,where:is_deleted = false"`
	Description  string     `json:"description" gorm:"type:text"`
	Optional     bool       `json:"optional" gorm:"type:boolean;not null;default:false"`
	DefaultValue string     `json:"defaultValue" gorm:"type:text"`
	ExampleValue string     `json:"exampleValue" gorm:"type:text"`
	SelectValues string     `json:"selectValues" gorm:"type:text"`
	IsDeleted    bool       `json:"isDeleted" gorm:"type:boolean;not null;default:false"`
	DeletedAt    *time.Time `json:"deletedAt"`
	Rank         *FieldRank `json:"rank" gorm:"foreignKey:FieldID;references:ID"`
}

type FieldRank struct {
	ID      int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	FieldID int64 `json:"fieldId" gorm:"not null;uniqueIndex"`
	Field   Field `json:"-" gorm:"foreignKey:FieldID;references:ID;constraint:OnDelete:CASCADE;"`
	Rank    int   `json:"rank" gorm:"not null"`
}

type FormPermission struct {
	FormID    int64   `json:"formId" gorm:"primaryKey"`
	Form      Form    `json:"-" gorm:"foreignKey:FormID;references:ID;constraint:OnDelete:CASCADE;"`
	ProfileID int64   `json:"profileId" gorm:"primaryKey"`
	Profile   Profile `json:"-" gorm:"foreignKey:ProfileID;references:ID;constraint:OnDelete:CASCADE;"`
	IsActive  bool    `json:"isActive" gorm:"type:boolean;not null;default:true"`
}

// DataRow is append-only: the repository never updates or deletes rows.
type DataRow struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionUUID string    `json:"sessionUuid" gorm:"type:text;not null;index"`
	UserID      int64     `json:"userId" gorm:"not null;index"`
	User        User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:RESTRICT;"`
	FieldID     int64     `json:"fieldId" gorm:"not null;index"`
	Field       Field     `json:"-" gorm:"foreignKey:FieldID;references:ID;constraint:OnDelete:RESTRICT;"`
	Value       string    `json:"value" gorm:"type:text;not null"`
	CDate       time.Time `json:"cdate" gorm:"not null;autoCreateTime;index"`
}
