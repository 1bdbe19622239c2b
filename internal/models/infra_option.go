package models

// InfraOption is a catalog entry used to populate infrastructure selection
// menus. The phase engine never consults it.
type InfraOption struct {
	OptID     uint      `gorm:"column:optid;primaryKey;autoIncrement"`
	Type      InfraType `gorm:"column:opttype;size:16;not null;uniqueIndex:idx_opt_type_name"`
	Name      string    `gorm:"column:optname;size:64;not null;uniqueIndex:idx_opt_type_name"`
	Provider  Provider  `gorm:"column:optprovider;size:16;default:local"`
	SortOrder int       `gorm:"column:optsortorder;default:0"`
}

// TableName keeps the legacy singular table name.
func (InfraOption) TableName() string { return "infra_option" }
