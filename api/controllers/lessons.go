package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rachelmorley/tutorpay-backend/api/responses"
	"github.com/rachelmorley/tutorpay-backend/api/validators"
	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

type bookLessonRequest struct {
	AccountID       uuid.UUID `json:"account_id" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	Recurring       bool      `json:"recurring"`
	AllowConflict   bool      `json:"allow_conflict"`
	Notes           *string   `json:"notes,omitempty"`
}

type updateLessonRequest struct {
	AccountID       *uuid.UUID `json:"account_id,omitempty"`
	Title           *string    `json:"title,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	AllowConflict   bool       `json:"allow_conflict"`
}

type rescheduleLessonRequest struct {
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	AllowConflict   bool      `json:"allow_conflict"`
}

type cancelLessonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// LessonBook creates a single lesson or a weekly series.
func LessonBook(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body bookLessonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Book(r.Context(), lessons.BookInput{
			AccountID:       body.AccountID,
			Title:           body.Title,
			StartTime:       body.StartTime,
			DurationMinutes: body.DurationMinutes,
			Recurring:       body.Recurring,
			AllowConflict:   body.AllowConflict,
			Notes:           body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// LessonCalendar returns every lesson in the requested window, regardless of
// account, for the tutor's calendar view.
func LessonCalendar(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCalendar(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// LessonListForAccount returns a student's full lesson history for staff.
func LessonListForAccount(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// LessonListMine returns the signed-in family's own lessons.
func LessonListMine(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := actorAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// LessonDetail returns one lesson; students only see their own.
func LessonDetail(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lesson, err := ownedLesson(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lesson)
	}
}

// LessonUpdate is the staff-side edit of time, duration, student, or notes.
func LessonUpdate(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID, err := pathUUID(r, "lessonId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateLessonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := lessons.UpdateInput{
			LessonID:        lessonID,
			Title:           body.Title,
			StartTime:       body.StartTime,
			DurationMinutes: body.DurationMinutes,
			Notes:           body.Notes,
			AllowConflict:   body.AllowConflict,
		}
		if body.AccountID != nil {
			input.AccountID = *body.AccountID
		}

		lesson, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lesson)
	}
}

// LessonReschedule moves a not-yet-started lesson. Students can move their
// own; staff can move any.
func LessonReschedule(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lesson, err := ownedLesson(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rescheduleLessonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Reschedule(r.Context(), lessons.RescheduleInput{
			LessonID:        lesson.ID,
			NewStart:        body.StartTime,
			DurationMinutes: body.DurationMinutes,
			AllowConflict:   body.AllowConflict,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// LessonCancel voids a lesson within the grace window. Students cancel their
// own; staff cancel any.
func LessonCancel(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lesson, err := ownedLesson(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelLessonRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		cancelled, err := svc.Cancel(r.Context(), lessons.CancelInput{
			LessonID: lesson.ID,
			Reason:   body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelled)
	}
}

// LessonCancelSeries voids the lesson plus every future occurrence in its
// recurring group.
func LessonCancelSeries(svc lessons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID, err := pathUUID(r, "lessonId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelLessonRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		cancelled, err := svc.CancelSeriesRest(r.Context(), lessons.CancelInput{
			LessonID: lessonID,
			Reason:   body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelled)
	}
}

// ownedLesson loads the lesson at {lessonId} and enforces that a student
// actor owns it. Foreign lessons read as not found rather than forbidden.
func ownedLesson(r *http.Request, svc lessons.Service) (*models.Lesson, error) {
	lessonID, err := pathUUID(r, "lessonId")
	if err != nil {
		return nil, err
	}

	lesson, err := svc.Get(r.Context(), lessonID)
	if err != nil {
		return nil, err
	}

	if !actorIsAdmin(r) {
		actor, err := actorAccountID(r)
		if err != nil {
			return nil, err
		}
		if lesson.AccountID != actor {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lesson not found")
		}
	}
	return lesson, nil
}

func queryTime(r *http.Request, param string) (time.Time, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, param+" is required")
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, param+" must be RFC3339")
	}
	return value, nil
}
