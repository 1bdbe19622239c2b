package models

// Infrastructure is a project-level infrastructure declaration, one row per
// infra type the project uses.
type Infrastructure struct {
	InfID    uint      `gorm:"column:infid;primaryKey;autoIncrement"`
	PrjID    uint      `gorm:"column:prjid;not null;index"`
	Type     InfraType `gorm:"column:inftype;size:16;not null"`
	Provider Provider  `gorm:"column:infprovider;size:16;default:local"`
	Value    string    `gorm:"column:infval;size:256"`
	Note     string    `gorm:"column:infnote;type:text"`
}

// TableName keeps the legacy singular table name.
func (Infrastructure) TableName() string { return "infrastructure" }

// RequestInfrastructure is a request-level override of the project's
// declaration for the same infra type.
type RequestInfrastructure struct {
	InfID    uint      `gorm:"column:infid;primaryKey;autoIncrement"`
	ReqID    uint      `gorm:"column:reqid;not null;index"`
	Type     InfraType `gorm:"column:inftype;size:16;not null"`
	Provider Provider  `gorm:"column:infprovider;size:16;default:local"`
	Value    string    `gorm:"column:infval;size:256"`
	Note     string    `gorm:"column:infnote;type:text"`
}

// TableName keeps the legacy table name.
func (RequestInfrastructure) TableName() string { return "request_infrastructure" }

// EffectiveInfra is one merged infrastructure entry for a request. Source
// records which level contributed the entry.
type EffectiveInfra struct {
	Type     InfraType
	Provider Provider
	Value    string
	Note     string
	Source   string // "project" or "request"
}
