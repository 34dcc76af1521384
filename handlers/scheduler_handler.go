package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/services"
)

const idempotencyKeyHeader = "Idempotency-Key"

type SchedulerHandler struct {
	scheduler services.SchedulerService
}

func NewSchedulerHandler(scheduler services.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

type setHoldInput struct {
	Held *bool `json:"held"`
}

type assignMatchInput struct {
	MatchID *int `json:"match_id"`
}

// GetState godoc
// @Summary Текущее состояние кортов и очереди
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Success 200 {object} models.Snapshot
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/state [get]
func (h *SchedulerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snap, err := h.scheduler.GetState(r.Context(), key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, snap, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpsertCourts godoc
// @Summary Задать набор кортов сетки
// @Tags scheduling
// @Description Принимает либо {"count": N}, либо {"names": [...]}. Корты сопоставляются по имени, освободившиеся матчи возвращаются в начало очереди.
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Param input body models.CourtSpec true "Желаемый набор кортов"
// @Success 200 {object} services.UpsertCourtsResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string "Некорректная спецификация кортов"
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/courts [put]
func (h *SchedulerHandler) UpsertCourts(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var spec models.CourtSpec
	if err := readJSON(w, r, &spec); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.scheduler.UpsertCourts(r.Context(), key, spec)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetCourtHold godoc
// @Summary Придержать корт или снять удержание
// @Tags scheduling
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Param courtID path int true "Court ID"
// @Param input body setHoldInput true "held"
// @Success 200 {object} models.Snapshot
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/courts/{courtID}/hold [patch]
func (h *SchedulerHandler) SetCourtHold(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	courtID, err := getIDFromURL(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input setHoldInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Held == nil {
		failedValidationResponse(w, r, services.ErrValidationFailed)
		return
	}

	snap, err := h.scheduler.SetCourtHold(r.Context(), key, courtID, *input.Held)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, snap, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BuildQueue godoc
// @Summary Перестроить очередь групповых матчей
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Success 200 {object} services.BuildQueueResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/queue/build [post]
func (h *SchedulerHandler) BuildQueue(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.scheduler.BuildGroupsQueue(r.Context(), key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AssignNext godoc
// @Summary Назначить следующий подходящий матч на корт
// @Tags scheduling
// @Description Повтор с тем же Idempotency-Key возвращает сохраненный результат. Отсутствие подходящего матча не является ошибкой: assigned=false.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Param courtID path int true "Court ID"
// @Param Idempotency-Key header string false "Идентификатор запроса"
// @Success 200 {object} models.AssignResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Корт занят"
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/courts/{courtID}/assign-next [post]
func (h *SchedulerHandler) AssignNext(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	courtID, err := getIDFromURL(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.scheduler.AssignNext(r.Context(), key, courtID, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AssignMatch godoc
// @Summary Назначить конкретный матч на корт вне порядка очереди
// @Tags scheduling
// @Description Матч должен быть в очереди, корт свободен, участники не заняты на других кортах.
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Param courtID path int true "Court ID"
// @Param input body assignMatchInput true "match_id"
// @Success 200 {object} models.Snapshot
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Корт занят, матч не в очереди или участник занят"
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/courts/{courtID}/assign [post]
func (h *SchedulerHandler) AssignMatch(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	courtID, err := getIDFromURL(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input assignMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MatchID == nil {
		failedValidationResponse(w, r, services.ErrValidationFailed)
		return
	}

	snap, err := h.scheduler.AssignMatch(r.Context(), key, courtID, *input.MatchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, snap, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartMatch godoc
// @Summary Отметить назначенный матч как начатый
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Param matchID path int true "Match ID"
// @Success 200 {object} models.Snapshot
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Недопустимый переход статуса"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/matches/{matchID}/start [post]
func (h *SchedulerHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	h.matchTransition(w, r, h.scheduler.StartMatch)
}

// FinishMatch godoc
// @Summary Завершить матч и освободить корт
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Param matchID path int true "Match ID"
// @Success 200 {object} models.Snapshot
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Недопустимый переход статуса"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/matches/{matchID}/finish [post]
func (h *SchedulerHandler) FinishMatch(w http.ResponseWriter, r *http.Request) {
	h.matchTransition(w, r, h.scheduler.FinishMatch)
}

type matchTransitionFunc func(ctx context.Context, key models.BracketKey, matchID int) (*models.Snapshot, error)

func (h *SchedulerHandler) matchTransition(w http.ResponseWriter, r *http.Request, fn matchTransitionFunc) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snap, err := fn(r.Context(), key, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, snap, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ArchiveSnapshot godoc
// @Summary Сохранить снимок состояния в объектное хранилище
// @Tags scheduling
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param bracketID path int true "Bracket ID"
// @Success 201 {object} map[string]storage.UploadResult
// @Failure 404 {object} map[string]string
// @Failure 501 {object} map[string]string "Архив не настроен"
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/brackets/{bracketID}/snapshots [post]
func (h *SchedulerHandler) ArchiveSnapshot(w http.ResponseWriter, r *http.Request) {
	key, err := bracketKeyFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.scheduler.ArchiveSnapshot(r.Context(), key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"archive": res}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
