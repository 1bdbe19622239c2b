package models

import "time"

// Request is the schedulable unit of work. It advances through phases until
// complete, or until a terminal failure parks it in err/tmout.
type Request struct {
	ReqID    uint        `gorm:"column:reqid;primaryKey;autoIncrement"`
	PrjID    uint        `gorm:"column:prjid;not null;index"`
	Name     string      `gorm:"column:reqname;size:128;not null"`
	Prompt   string      `gorm:"column:reqprompt;type:text;not null"`
	Type     RequestType `gorm:"column:reqtype;size:16;default:new_feature"`
	Priority int         `gorm:"column:reqpriority;default:5;index"`
	Phase    Phase       `gorm:"column:reqphase;size:16;default:plan"`
	Status   Status      `gorm:"column:reqstatus;size:8;default:tbd;index"`

	CodeDir      string `gorm:"column:reqcodedir;size:256"`
	DocPath      string `gorm:"column:reqdocpath;size:256"`
	PlanPath     string `gorm:"column:reqplanpath;size:256"`
	TestPlanPath string `gorm:"column:reqtestplanpath;size:256"`
	TestRetries  int    `gorm:"column:reqtestretries;default:0"`
	LastError    string `gorm:"column:reqerror;type:text"`

	CommitEnabled *int   `gorm:"column:reqcommitenabled"` // nil=defer, 0=force-skip, 2=force-include
	CommitBranch  string `gorm:"column:reqcommitbranch;size:128"`

	TouchedAt time.Time `gorm:"column:reqtouchts;index"`

	Infra []RequestInfrastructure `gorm:"foreignKey:ReqID"`
}

// TableName keeps the legacy singular table name.
func (Request) TableName() string { return "request" }
