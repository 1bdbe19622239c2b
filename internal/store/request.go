package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
)

// RequestView is a request joined with the owning project's fields that the
// processor and prompt builder need.
type RequestView struct {
	models.Request

	PrjName             string              `gorm:"column:prjname"`
	PrjVersion          models.Version      `gorm:"column:prjversion"`
	ProjectPhase        models.ProjectPhase `gorm:"column:project_phase"`
	PrjCodeDir          string              `gorm:"column:prjcodedir"`
	PrjPrompt           string              `gorm:"column:prjprompt"`
	PrjDocPath          string              `gorm:"column:prjdocpath"`
	PrjModel            string              `gorm:"column:prjmodel"`
	PrjCommitEnabled    *int                `gorm:"column:prjcommitenabled"`
	PrjCommitBranchMode string              `gorm:"column:prjcommitbranchmode"`
	PrjCommitBranchName string              `gorm:"column:prjcommitbranchname"`
}

// EffectiveCodeDir resolves the working directory for agent invocations:
// request override, then project default, then the current directory.
func (v *RequestView) EffectiveCodeDir() string {
	if v.CodeDir != "" {
		return v.CodeDir
	}
	if v.PrjCodeDir != "" {
		return v.PrjCodeDir
	}
	return "."
}

const requestViewSelect = `request.*, p.prjname, p.prjversion, p.prjphase AS project_phase,
p.prjcodedir, p.prjprompt, p.prjdocpath, p.prjmodel,
p.prjcommitenabled, p.prjcommitbranchmode, p.prjcommitbranchname`

// CreateRequest inserts a new pending request in phase plan. The owning
// project must exist.
func CreateRequest(gdb *gorm.DB, req *models.Request) error {
	if req.Name == "" {
		return fmt.Errorf("store: request name is required")
	}
	if req.Prompt == "" {
		return fmt.Errorf("store: request prompt is required")
	}
	if _, err := GetProject(gdb, req.PrjID); err != nil {
		return err
	}
	if req.Type == "" {
		req.Type = models.TypeNewFeature
	}
	if !req.Type.Valid() {
		return fmt.Errorf("store: invalid request type %q", req.Type)
	}
	if req.Priority == 0 {
		req.Priority = models.DefaultPriority
	}
	if req.Priority < models.PriorityMin || req.Priority > models.PriorityMax {
		return fmt.Errorf("store: priority %d out of range [%d,%d]",
			req.Priority, models.PriorityMin, models.PriorityMax)
	}
	req.Phase = models.PhasePlan
	req.Status = models.StatusTBD
	req.TouchedAt = time.Now()

	if err := gdb.Create(req).Error; err != nil {
		return fmt.Errorf("store: create request %q: %w", req.Name, err)
	}
	return nil
}

// GetRequest retrieves a request by id.
func GetRequest(gdb *gorm.DB, reqID uint) (*models.Request, error) {
	var req models.Request
	if err := gdb.Where("reqid = ?", reqID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: request %d", ErrNotFound, reqID)
		}
		return nil, fmt.Errorf("store: get request %d: %w", reqID, err)
	}
	return &req, nil
}

// GetRequestView retrieves a request joined with its project fields.
func GetRequestView(gdb *gorm.DB, reqID uint) (*RequestView, error) {
	var view RequestView
	err := gdb.Table("request").
		Select(requestViewSelect).
		Joins("JOIN project p ON request.prjid = p.prjid").
		Where("request.reqid = ?", reqID).
		Take(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: request %d", ErrNotFound, reqID)
		}
		return nil, fmt.Errorf("store: get request view %d: %w", reqID, err)
	}
	return &view, nil
}

// ListRequests returns requests, optionally filtered by project and status,
// newest first.
func ListRequests(gdb *gorm.DB, prjID uint, status models.Status) ([]RequestView, error) {
	q := gdb.Table("request").
		Select(requestViewSelect).
		Joins("JOIN project p ON request.prjid = p.prjid")
	if prjID != 0 {
		q = q.Where("request.prjid = ?", prjID)
	}
	if status != "" {
		q = q.Where("request.reqstatus = ?", status)
	}
	var views []RequestView
	if err := q.Order("request.reqtouchts DESC").Find(&views).Error; err != nil {
		return nil, fmt.Errorf("store: list requests: %w", err)
	}
	return views, nil
}

// ClaimNext atomically claims the highest-priority pending request: lowest
// priority number first, oldest touch timestamp breaking ties. The claim is a
// conditional update guarded by reqstatus = 'tbd', so two daemons racing for
// the same row cannot both win it. Returns ErrNoPending when the queue is
// empty.
func ClaimNext(gdb *gorm.DB) (*RequestView, error) {
	// A lost race re-selects; the queue is finite and each attempt either
	// wins a row or observes someone else's win, so a few tries suffice.
	for attempt := 0; attempt < 3; attempt++ {
		var view RequestView
		err := gdb.Table("request").
			Select(requestViewSelect).
			Joins("JOIN project p ON request.prjid = p.prjid").
			Where("request.reqstatus = ?", models.StatusTBD).
			Order("request.reqpriority ASC, request.reqtouchts ASC").
			Limit(1).
			Take(&view).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoPending
			}
			return nil, fmt.Errorf("store: select next request: %w", err)
		}

		now := time.Now()
		result := gdb.Model(&models.Request{}).
			Where("reqid = ? AND reqstatus = ?", view.ReqID, models.StatusTBD).
			Updates(map[string]interface{}{
				"reqstatus":  models.StatusWIP,
				"reqerror":   "",
				"reqtouchts": now,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("store: claim request %d: %w", view.ReqID, result.Error)
		}
		if result.RowsAffected == 0 {
			continue // another instance won the row
		}

		view.Status = models.StatusWIP
		view.LastError = ""
		view.TouchedAt = now
		return &view, nil
	}
	return nil, ErrNoPending
}

// SetStatus updates a request's status and refreshes its touch timestamp.
func SetStatus(gdb *gorm.DB, reqID uint, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("store: invalid status %q", status)
	}
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqstatus": status})
}

// SetPhase updates a request's phase and refreshes its touch timestamp.
func SetPhase(gdb *gorm.DB, reqID uint, phase models.Phase) error {
	if !phase.Valid() {
		return fmt.Errorf("store: invalid phase %q", phase)
	}
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqphase": phase})
}

// SetError records the last error text for a request.
func SetError(gdb *gorm.DB, reqID uint, errText string) error {
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqerror": errText})
}

// SetDocPath records the path of the saved phase output document.
func SetDocPath(gdb *gorm.DB, reqID uint, path string) error {
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqdocpath": path})
}

// SetPlanPath records the path of the current planning document.
func SetPlanPath(gdb *gorm.DB, reqID uint, path string) error {
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqplanpath": path})
}

// SetTestPlanPath records the path of the current test plan document.
func SetTestPlanPath(gdb *gorm.DB, reqID uint, path string) error {
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqtestplanpath": path})
}

// IncrementTestRetries bumps the test retry counter and returns the new value.
func IncrementTestRetries(gdb *gorm.DB, reqID uint) (int, error) {
	err := gdb.Model(&models.Request{}).
		Where("reqid = ?", reqID).
		Updates(map[string]interface{}{
			"reqtestretries": gorm.Expr("reqtestretries + 1"),
			"reqtouchts":     time.Now(),
		}).Error
	if err != nil {
		return 0, fmt.Errorf("store: increment test retries for %d: %w", reqID, err)
	}
	var retries int
	if err := gdb.Model(&models.Request{}).Where("reqid = ?", reqID).
		Pluck("reqtestretries", &retries).Error; err != nil {
		return 0, fmt.Errorf("store: read test retries for %d: %w", reqID, err)
	}
	return retries, nil
}

// ResetTestRetries zeroes the test retry counter.
func ResetTestRetries(gdb *gorm.DB, reqID uint) error {
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqtestretries": 0})
}

// RequestUpdate carries optional field changes for UpdateRequest. The owning
// project is immutable.
type RequestUpdate struct {
	Name         *string
	Prompt       *string
	Type         *models.RequestType
	Priority     *int
	CodeDir      *string
	CommitBranch *string

	CommitEnabled      *int // CommitForceSkip/CommitForceInclude
	ClearCommitEnabled bool
}

// UpdateRequest applies the non-nil fields of upd.
func UpdateRequest(gdb *gorm.DB, reqID uint, upd RequestUpdate) error {
	fields := map[string]interface{}{}
	if upd.Name != nil {
		fields["reqname"] = *upd.Name
	}
	if upd.Prompt != nil {
		fields["reqprompt"] = *upd.Prompt
	}
	if upd.Type != nil {
		if !upd.Type.Valid() {
			return fmt.Errorf("store: invalid request type %q", *upd.Type)
		}
		fields["reqtype"] = *upd.Type
	}
	if upd.Priority != nil {
		if *upd.Priority < models.PriorityMin || *upd.Priority > models.PriorityMax {
			return fmt.Errorf("store: priority %d out of range [%d,%d]",
				*upd.Priority, models.PriorityMin, models.PriorityMax)
		}
		fields["reqpriority"] = *upd.Priority
	}
	if upd.CodeDir != nil {
		fields["reqcodedir"] = *upd.CodeDir
	}
	if upd.CommitBranch != nil {
		fields["reqcommitbranch"] = *upd.CommitBranch
	}
	if upd.ClearCommitEnabled {
		fields["reqcommitenabled"] = nil
	} else if upd.CommitEnabled != nil {
		fields["reqcommitenabled"] = *upd.CommitEnabled
	}
	if len(fields) == 0 {
		return nil
	}
	return touchUpdate(gdb, reqID, fields)
}

// Requeue puts a request back in the pending queue without recording an
// error. Used after transient failures such as rate limiting.
func Requeue(gdb *gorm.DB, reqID uint) error {
	return touchUpdate(gdb, reqID, map[string]interface{}{"reqstatus": models.StatusTBD})
}

// DeleteRequest removes a request and its infrastructure overrides. The
// owning project and its infrastructure are untouched.
func DeleteRequest(gdb *gorm.DB, reqID uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reqid = ?", reqID).
			Delete(&models.RequestInfrastructure{}).Error; err != nil {
			return fmt.Errorf("store: cascade infra of request %d: %w", reqID, err)
		}
		result := tx.Where("reqid = ?", reqID).Delete(&models.Request{})
		if result.Error != nil {
			return fmt.Errorf("store: delete request %d: %w", reqID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d", ErrNotFound, reqID)
		}
		return nil
	})
}

// touchUpdate applies fields plus a touch timestamp refresh to one request.
func touchUpdate(gdb *gorm.DB, reqID uint, fields map[string]interface{}) error {
	fields["reqtouchts"] = time.Now()
	result := gdb.Model(&models.Request{}).Where("reqid = ?", reqID).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("store: update request %d: %w", reqID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: request %d", ErrNotFound, reqID)
	}
	return nil
}
