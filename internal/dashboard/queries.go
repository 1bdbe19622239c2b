package dashboard

import (
	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
)

// QueueSummary holds request counts by status.
type QueueSummary struct {
	Pending   int64 `json:"pending"`
	Active    int64 `json:"active"`
	Done      int64 `json:"done"`
	Errored   int64 `json:"errored"`
	TimedOut  int64 `json:"timed_out"`
	Total     int64 `json:"total"`
}

// queueSummary counts requests grouped by status.
func queueSummary(db *gorm.DB) (QueueSummary, error) {
	type row struct {
		Status models.Status `gorm:"column:reqstatus"`
		Count  int64
	}
	var rows []row
	err := db.Model(&models.Request{}).
		Select("reqstatus, count(*) as count").
		Group("reqstatus").
		Find(&rows).Error
	if err != nil {
		return QueueSummary{}, err
	}

	var s QueueSummary
	for _, r := range rows {
		s.Total += r.Count
		switch r.Status {
		case models.StatusTBD:
			s.Pending += r.Count
		case models.StatusWIP:
			s.Active += r.Count
		case models.StatusDone:
			s.Done += r.Count
		case models.StatusErr:
			s.Errored += r.Count
		case models.StatusTimeout:
			s.TimedOut += r.Count
		}
	}
	return s, nil
}

// PhaseCount is the number of non-terminal requests sitting in one phase.
type PhaseCount struct {
	Phase models.Phase `json:"phase" gorm:"column:reqphase"`
	Count int64        `json:"count"`
}

// phaseSummary counts unfinished requests per phase, in pipeline order.
func phaseSummary(db *gorm.DB) ([]PhaseCount, error) {
	var rows []PhaseCount
	err := db.Model(&models.Request{}).
		Select("reqphase, count(*) as count").
		Where("reqphase != ?", models.PhaseComplete).
		Group("reqphase").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	order := map[models.Phase]int{}
	for i, p := range models.Phases {
		order[p] = i
	}
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			if order[rows[j].Phase] < order[rows[i].Phase] {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
	}
	return rows, nil
}

// ProjectRow is a project with its request counts for the projects listing.
type ProjectRow struct {
	models.Project
	RequestCount int64 `json:"request_count" gorm:"column:request_count"`
	PendingCount int64 `json:"pending_count" gorm:"column:pending_count"`
}

// projectSummary lists projects with request counts, highest priority first.
func projectSummary(db *gorm.DB) ([]ProjectRow, error) {
	var rows []ProjectRow
	err := db.Table("project").
		Select(`project.*,
			(SELECT count(*) FROM request r WHERE r.prjid = project.prjid) AS request_count,
			(SELECT count(*) FROM request r WHERE r.prjid = project.prjid AND r.reqstatus = ?) AS pending_count`,
			models.StatusTBD).
		Order("project.prjpriority ASC, project.prjname ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
