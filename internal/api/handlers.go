package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/generation"
	"github.com/p-n-ai/pai-studypack/internal/report"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

var errBadRequest = errors.New("bad request")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleGenerate runs the whole pipeline inside the request, which can take
// minutes, so the write deadline is lifted for this route.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req, err := parseGenerateForm(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	syllabus, closeSyllabus, err := formDocument(r, "file")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeSyllabus()
	notes, closeNotes, err := formDocument(r, "notes")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeNotes()
	req.Syllabus, req.Notes = syllabus, notes

	created, err := s.pipeline.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Study package generated",
		"id":      created.ID,
	})
}

func parseGenerateForm(r *http.Request) (generation.GenerateRequest, error) {
	req := generation.GenerateRequest{
		Meta:         subject.Meta{Name: strings.TrimSpace(r.FormValue("subject_name"))},
		SyllabusText: r.FormValue("syllabus_text"),
		NotesText:    r.FormValue("notes_text"),
	}

	if v := strings.TrimSpace(r.FormValue("exam_date")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return req, fmt.Errorf("%w: exam_date %q: want YYYY-MM-DD", errBadRequest, v)
		}
		req.Meta.ExamDate = &d
	}
	if v := strings.TrimSpace(r.FormValue("study_hours_per_day")); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("%w: study_hours_per_day %q is not a number", errBadRequest, v)
		}
		req.Meta.StudyHoursPerDay = h
	}
	if v := strings.TrimSpace(r.FormValue("total_days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: total_days %q is not an integer", errBadRequest, v)
		}
		req.Meta.TotalDays = n
	}
	return req, nil
}

func parseDate(v string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, v); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, v)
}

// formDocument returns the uploaded file under field, or nil when absent.
func formDocument(r *http.Request, field string) (*generation.Document, func(), error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: reading %s: %v", errBadRequest, field, err)
	}
	return &generation.Document{Filename: hdr.Filename, Body: f}, func() { f.Close() }, nil
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	out, err := s.queries.ListSubjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	out, err := s.queries.ListSubjectProgress(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	out, err := s.queries.ListTopics(r.Context(), r.PathValue("subjectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	out, err := s.queries.GetTopic(r.Context(), r.PathValue("subjectID"), r.PathValue("topicID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type completionRequest struct {
	CorrectAnswers *int `json:"correct_answers"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var body completionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if body.CorrectAnswers == nil {
		writeError(w, r, fmt.Errorf("%w: correct_answers is required", errBadRequest))
		return
	}

	perf, err := s.recorder.RecordCompletion(r.Context(), r.PathValue("subjectID"), r.PathValue("topicID"), *body.CorrectAnswers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Topic completion recorded",
		"performance": perf,
	})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	trend, err := s.aggregator.Recompute(r.Context(), r.PathValue("subjectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Progress summary updated",
		"growth_trend": trend,
	})
}

func (s *Server) handleTopicAnalytics(w http.ResponseWriter, r *http.Request) {
	out, err := s.queries.ListTopicDepthScores(r.Context(), r.PathValue("subjectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubjectAnalytics(w http.ResponseWriter, r *http.Request) {
	out, err := s.queries.ListSubjectDepthScores(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	subj, err := s.queries.Subject(r.Context(), r.PathValue("subjectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, subj); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "progress-"+subj.ID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
