package models

import "time"

// Project is a container of related requests plus their shared defaults.
type Project struct {
	PrjID    uint         `gorm:"column:prjid;primaryKey;autoIncrement"`
	Name     string       `gorm:"column:prjname;size:128;uniqueIndex;not null"`
	Version  Version      `gorm:"column:prjversion;size:8;default:poc"`
	Priority int          `gorm:"column:prjpriority;default:5"`
	Phase    ProjectPhase `gorm:"column:prjphase;size:8;default:dev"`
	Desc     string       `gorm:"column:prjdesc;type:text"`

	// Defaults inherited by requests that don't override them.
	CodeDir          string `gorm:"column:prjcodedir;size:256"`
	Prompt           string `gorm:"column:prjprompt;type:text"`
	DocPath          string `gorm:"column:prjdocpath;size:256"`
	Model            string `gorm:"column:prjmodel;size:64"`
	CommitEnabled    *int   `gorm:"column:prjcommitenabled"` // nil=defer, 0=disabled, 1=enabled
	CommitBranchMode string `gorm:"column:prjcommitbranchmode;size:8"`
	CommitBranchName string `gorm:"column:prjcommitbranchname;size:128"`

	TouchedAt time.Time `gorm:"column:prjtouchts"`

	Requests []Request        `gorm:"foreignKey:PrjID"`
	Infra    []Infrastructure `gorm:"foreignKey:PrjID"`
}

// TableName keeps the legacy singular table name.
func (Project) TableName() string { return "project" }
