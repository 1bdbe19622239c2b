package models

import "time"

// Learning is a short free-text note fed into future phase prompts as
// context. PrjID may be GlobalLearningID (-1) for notes that apply to every
// project, so the column carries no foreign key constraint.
type Learning struct {
	LrnID     uint      `gorm:"column:lrnid;primaryKey;autoIncrement"`
	PrjID     int       `gorm:"column:prjid;not null;index"`
	Desc      string    `gorm:"column:lrndesc;type:text;not null"`
	TouchedAt time.Time `gorm:"column:lrntouchts"`
}

// TableName keeps the legacy singular table name.
func (Learning) TableName() string { return "learning" }
