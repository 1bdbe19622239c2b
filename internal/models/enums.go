package models

// Phase is one stage in the fixed request lifecycle.
type Phase string

const (
	PhasePlan     Phase = "plan"
	PhaseDev      Phase = "dev"
	PhaseTest     Phase = "test"
	PhaseDeploy   Phase = "deploy"
	PhaseVerify   Phase = "verify"
	PhaseDocument Phase = "document"
	PhaseCommit   Phase = "commit"
	PhaseComplete Phase = "complete"
)

// Phases lists all request phases in lifecycle order.
var Phases = []Phase{
	PhasePlan, PhaseDev, PhaseTest, PhaseDeploy,
	PhaseVerify, PhaseDocument, PhaseCommit, PhaseComplete,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	for _, ph := range Phases {
		if p == ph {
			return true
		}
	}
	return false
}

// Status is the scheduling state of a request.
type Status string

const (
	StatusTBD     Status = "tbd"   // pending, eligible for dispatch
	StatusWIP     Status = "wip"   // currently being executed
	StatusDone    Status = "done"  // all phases complete
	StatusErr     Status = "err"   // terminal failure
	StatusTimeout Status = "tmout" // phase timed out
)

// Statuses lists all request statuses.
var Statuses = []Status{StatusTBD, StatusWIP, StatusDone, StatusErr, StatusTimeout}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// RequestType categorizes the kind of work a request asks for.
type RequestType string

const (
	TypeNewFeature  RequestType = "new_feature"
	TypeBugFix      RequestType = "bug_fix"
	TypeEnhancement RequestType = "enhancement"
)

// RequestTypes lists all request types.
var RequestTypes = []RequestType{TypeNewFeature, TypeBugFix, TypeEnhancement}

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	for _, rt := range RequestTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Version is a project's version label.
type Version string

const (
	VersionPOC Version = "poc"
	VersionMVP Version = "mvp"
	VersionV1  Version = "v1"
	VersionV11 Version = "v1.1"
	VersionV2  Version = "v2"
)

// Versions lists all project version labels.
var Versions = []Version{VersionPOC, VersionMVP, VersionV1, VersionV11, VersionV2}

// Valid reports whether v is a known version label.
func (v Version) Valid() bool {
	for _, pv := range Versions {
		if v == pv {
			return true
		}
	}
	return false
}

// ProjectPhase is a project's descriptive lifecycle stage. It never affects
// scheduling.
type ProjectPhase string

const (
	ProjectDev  ProjectPhase = "dev"
	ProjectQA   ProjectPhase = "qa"
	ProjectUAT  ProjectPhase = "uat"
	ProjectProd ProjectPhase = "prod"
)

// ProjectPhases lists all project phases.
var ProjectPhases = []ProjectPhase{ProjectDev, ProjectQA, ProjectUAT, ProjectProd}

// Valid reports whether p is a known project phase.
func (p ProjectPhase) Valid() bool {
	for _, pp := range ProjectPhases {
		if p == pp {
			return true
		}
	}
	return false
}

// InfraType is a category of infrastructure a project or request can declare.
type InfraType string

const (
	InfraCompute InfraType = "compute"
	InfraStorage InfraType = "storage"
	InfraQueue   InfraType = "queue"
	InfraAccess  InfraType = "access"
	InfraUI      InfraType = "ui"
)

// InfraTypes lists all infrastructure types.
var InfraTypes = []InfraType{InfraCompute, InfraStorage, InfraQueue, InfraAccess, InfraUI}

// Valid reports whether t is a known infrastructure type.
func (t InfraType) Valid() bool {
	for _, it := range InfraTypes {
		if t == it {
			return true
		}
	}
	return false
}

// Provider is an infrastructure provider hint.
type Provider string

const (
	ProviderLocal     Provider = "local"
	ProviderContainer Provider = "container"
	ProviderAWS       Provider = "aws"
	ProviderGCP       Provider = "gcp"
	ProviderAzure     Provider = "azure"
)

// Providers lists all infrastructure providers.
var Providers = []Provider{ProviderLocal, ProviderContainer, ProviderAWS, ProviderGCP, ProviderAzure}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	for _, pr := range Providers {
		if p == pr {
			return true
		}
	}
	return false
}

// Request-level commit override values. Absence (nil) defers to the project
// and then the global setting.
const (
	CommitForceSkip    = 0 // skip the commit phase regardless of project/global
	CommitForceInclude = 2 // run the commit phase regardless of project/global
)

// Project-level commit override values. Absence (nil) defers to the global
// setting.
const (
	CommitDisabled = 0
	CommitEnabled  = 1
)

// Commit branch modes.
const (
	BranchModeCurrent = "current"
	BranchModeOther   = "other"
)

// Priority bounds. Lower numbers are dispatched first.
const (
	PriorityMin     = 1
	PriorityMax     = 10
	DefaultPriority = 5

	// EscalationPriority is assigned to auto-filed bug-fix requests so they
	// jump ahead of default-priority work.
	EscalationPriority = 2
)

// GlobalLearningID is the sentinel project id for learnings that apply to
// every project. It is exempt from the project foreign key.
const GlobalLearningID = -1
