package models

import (
	"time"
)

type Profile struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Code        string `json:"code" gorm:"type:text;not null"`
	Label       string `json:"label" gorm:"type:text;not null"`
	Value       string `json:"value" gorm:"type:text;not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
}

type User struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Code      string    `json:"code" gorm:"type:text"`
	Lastname  string    `json:"lastname" gorm:"type:text"`
	Firstname string    `json:"firstname" gorm:"type:text"`
	Email     string    `json:"email" gorm:"type:text;uniqueIndex"`
	ProfileID int64     `json:"profileId" gorm:"not null;index"`
	Profile   Profile   `json:"profile" gorm:"foreignKey:ProfileID;references:ID;constraint:OnDelete:RESTRICT;"`
	IsActive  bool      `json:"isActive" gorm:"type:boolean;not null;default:true"`
	IsDeleted bool      `json:"isDeleted" gorm:"type:boolean;not null;default:false"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;not null;autoCreateTime"`
}

type Team struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string `json:"name" gorm:"type:text;not null"`
	IsActive  bool   `json:"isActive" gorm:"type:boolean;not null;default:true"`
	IsDeleted bool   `json:"isDeleted" gorm:"type:boolean;not null;default:false"`
}

type UserTeam struct {
	UserID int64 `json:"userId" gorm:"primaryKey"`
	User   User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;"`
	TeamID int64 `json:"teamId" gorm:"primaryKey;index"`
	Team   Team  `json:"-" gorm:"foreignKey:TeamID;references:ID;constraint:OnDelete:CASCADE;"`
}

type Project struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Code      string `json:"code" gorm:"type:text"`
	Name      string `json:"name" gorm:"type:text;not null"`
	FormID    *int64 `json:"formId" gorm:"index"`
	Form      *Form  `json:"-" gorm:"foreignKey:FormID;references:ID;constraint:OnDelete:SET NULL;"`
	IsActive  bool   `json:"isActive" gorm:"type:boolean;not null;default:true"`
	IsDeleted bool   `json:"isDeleted" gorm:"type:boolean;not null;default:false"`
}

type ProjectTeam struct {
	ProjectID int64   `json:"projectId" gorm:"primaryKey"`
	Project   Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE;"`
	TeamID    int64   `json:"teamId" gorm:"primaryKey;index"`
	Team      Team    `json:"-" gorm:"foreignKey:TeamID;references:ID;constraint:OnDelete:CASCADE;"`
	IsActive  bool    `json:"isActive" gorm:"type:boolean;not null;default:true"`
}
