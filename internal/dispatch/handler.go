package dispatch

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"mentortrack/internal/apierr"
	"mentortrack/internal/attendance"
	"mentortrack/internal/backup"
	"mentortrack/internal/report"
	"mentortrack/internal/roster"
)

var actionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "api_actions_total",
	Help: "Dispatched API actions by action name and HTTP status.",
}, []string{"action", "status"})

func init() {
	prometheus.MustRegister(actionsTotal)
}

// ReportEngine generates attendance reports.
type ReportEngine interface {
	Generate(ctx context.Context, p report.Params) (*report.Result, error)
}

// Recorder records attendance events.
type Recorder interface {
	Record(ctx context.Context, in attendance.Input) (*attendance.Result, error)
}

// Roster mutates students and leaders.
type Roster interface {
	AddStudent(ctx context.Context, in roster.AddStudentInput) (*roster.Result, error)
	AddLeader(ctx context.Context, in roster.AddLeaderInput) (*roster.Result, error)
	RemoveStudentByID(ctx context.Context, studentID string) (*roster.Result, error)
	RemoveStudentByName(ctx context.Context, name string) (*roster.Result, error)
}

// TermResolver finds the current term. Handlers resolve once per request and
// pass the result down; core components never look it up themselves.
type TermResolver interface {
	Current(ctx context.Context) (*roster.Term, error)
}

// BackupRunner snapshots the database.
type BackupRunner interface {
	Run(ctx context.Context, format string) (*backup.Result, error)
}

// Handler routes the single /api endpoint's action parameter to the core
// services.
type Handler struct {
	reports  ReportEngine
	recorder Recorder
	roster   Roster
	terms    TermResolver
	backups  BackupRunner
}

// New creates a handler.
func New(reports ReportEngine, recorder Recorder, rosterSvc Roster, terms TermResolver, backups BackupRunner) *Handler {
	return &Handler{reports: reports, recorder: recorder, roster: rosterSvc, terms: terms, backups: backups}
}

// Handle dispatches one request by its action parameter.
func (h *Handler) Handle(c *gin.Context) {
	params := FromRequest(c.Request)
	action := strings.ToLower(params.Get("action"))

	switch action {
	case "report":
		h.report(c, params)
	case "addattendance":
		h.addAttendance(c, params)
	case "addstudent":
		h.addStudent(c, params)
	case "addleader":
		h.addLeader(c, params)
	case "removestudent":
		h.removeStudent(c, params)
	case "backupdatabase":
		h.backupDatabase(c, params)
	default:
		action = "unknown"
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid action!"})
	}

	actionsTotal.WithLabelValues(action, strconv.Itoa(c.Writer.Status())).Inc()
}

func (h *Handler) report(c *gin.Context, params Params) {
	termID, err := params.Int64("term_id")
	if err != nil {
		writeError(c, err)
		return
	}
	var date string
	if raw := params.Get("date"); raw != "" {
		if date, err = NormalizeDate(raw); err != nil {
			writeError(c, err)
			return
		}
	}
	format := params.Get("format")
	if format == "" {
		format = "json"
	}

	res, err := h.reports.Generate(c.Request.Context(), report.Params{
		TermID:    termID,
		StudentID: params.Get("student_id"),
		Date:      date,
		Absent:    params.Bool("absent"),
		Format:    format,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) addAttendance(c *gin.Context, params Params) {
	if missing := params.Missing("student_id", "course_id"); len(missing) > 0 {
		writeMissing(c, missing)
		return
	}
	var date string
	if raw := params.Get("date"); raw != "" {
		var err error
		if date, err = NormalizeDate(raw); err != nil {
			writeError(c, err)
			return
		}
	}

	termShortName := params.Get("term_id")
	if termShortName == "" {
		t, err := h.terms.Current(c.Request.Context())
		if err != nil {
			writeError(c, apierr.Internal(err))
			return
		}
		if t != nil {
			termShortName = t.ShortName
		}
	}

	res, err := h.recorder.Record(c.Request.Context(), attendance.Input{
		StudentID:  params.Get("student_id"),
		CourseCode: params.Get("course_id"),
		Term:       termShortName,
		Date:       date,
		Time:       params.Get("time"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) addStudent(c *gin.Context, params Params) {
	if missing := params.Missing("student_id", "first_name", "last_name"); len(missing) > 0 {
		writeMissing(c, missing)
		return
	}
	leaderID, err := params.Int64("leader_id")
	if err != nil {
		writeError(c, err)
		return
	}
	termID, err := params.Int64("term_id")
	if err != nil {
		writeError(c, err)
		return
	}
	if termID == nil {
		t, rerr := h.terms.Current(c.Request.Context())
		if rerr != nil {
			writeError(c, apierr.Internal(rerr))
			return
		}
		if t != nil {
			termID = &t.ID
		}
	}

	res, err := h.roster.AddStudent(c.Request.Context(), roster.AddStudentInput{
		StudentID:    params.Get("student_id"),
		FirstName:    params.Get("first_name"),
		LastName:     params.Get("last_name"),
		Email:        params.Optional("email"),
		Phone:        params.Optional("phone"),
		LeaderID:     leaderID,
		TermID:       termID,
		AssignLeader: params.Bool("assign_leader"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) addLeader(c *gin.Context, params Params) {
	if missing := params.Missing("first_name", "last_name"); len(missing) > 0 {
		writeMissing(c, missing)
		return
	}
	termID, err := params.Int64("term_id")
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.roster.AddLeader(c.Request.Context(), roster.AddLeaderInput{
		FirstName: params.Get("first_name"),
		LastName:  params.Get("last_name"),
		Email:     params.Optional("email"),
		Phone:     params.Optional("phone"),
		TermID:    termID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) removeStudent(c *gin.Context, params Params) {
	var res *roster.Result
	var err error
	switch {
	case params.Get("id") != "":
		res, err = h.roster.RemoveStudentByID(c.Request.Context(), params.Get("id"))
	case params.Get("name") != "":
		res, err = h.roster.RemoveStudentByName(c.Request.Context(), params.Get("name"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing parameters: id or name required"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) backupDatabase(c *gin.Context, params Params) {
	format := params.Get("format")
	if format == "" {
		format = "json"
	}
	res, err := h.backups.Run(c.Request.Context(), format)
	if err != nil {
		writeError(c, err)
		return
	}
	if format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
		return
	}
	c.JSON(http.StatusOK, res)
}

func writeMissing(c *gin.Context, missing []string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  "error",
		"message": "Missing parameters: " + strings.Join(missing, ", "),
	})
}

// writeError maps core errors to responses. Lookup misses keep the legacy
// {"error": ...} shape; everything else uses {status, message}.
func writeError(c *gin.Context, err error) {
	status := apierr.HTTPStatus(err)
	if apierr.IsCode(err, apierr.CodeNotFound) {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, gin.H{"status": "error", "message": err.Error()})
}
