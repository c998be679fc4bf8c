package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/present/rest/middleware"
	"github.com/totegamma/eform-core/internal/present/rest/presenter"
	"github.com/totegamma/eform-core/internal/usecase"
)

// Realtime feeds submission events for the forms last sent on input.
type Realtime interface {
	Realtime(ctx context.Context, input <-chan []string, output chan<- domain.SubmissionEvent)
}

type Handler struct {
	fieldTypes *usecase.FieldTypeUsecase
	forms      *usecase.FormUsecase
	store      *usecase.StoreUsecase
	statistics *usecase.StatisticsUsecase
	signal     Realtime
}

func NewHandler(
	fieldTypes *usecase.FieldTypeUsecase,
	forms *usecase.FormUsecase,
	store *usecase.StoreUsecase,
	statistics *usecase.StatisticsUsecase,
	signal Realtime,
) *Handler {
	return &Handler{
		fieldTypes: fieldTypes,
		forms:      forms,
		store:      store,
		statistics: statistics,
		signal:     signal,
	}
}

// Validator adapts validator/v10 to echo.
type Validator struct {
	validator *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validator: validator.New()}
}

func (v *Validator) Validate(i any) error {
	if err := v.validator.Struct(i); err != nil {
		return domain.BadRequestError{Message: err.Error()}
	}
	return nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	require := middleware.Require

	e.GET("/field-types", h.handleFieldTypes, require(domain.PermFormFindAll))

	e.POST("/form", h.handleCreateForm, require(domain.PermFormCreate))
	e.GET("/form", h.handleListForms, require(domain.PermFormFindAll))
	e.GET("/form/:id", h.handleGetForm, require(domain.PermFormFindOne))
	e.GET("/form/by-uuid/:uuid", h.handleGetFormByUUID, require(domain.PermFormFindOne))
	e.GET("/form/by-uuid/:uuid/schema", h.handleFormSchema, require(domain.PermStoreSave))
	e.PATCH("/form/:id", h.handleUpdateForm, require(domain.PermFormUpdate))
	e.PATCH("/form/add-field/:id", h.handleAddField, require(domain.PermFormAddField))
	e.PATCH("/form/update-fields/:id", h.handleUpdateFields, require(domain.PermFormUpdateFields))
	e.GET("/form/duplicate/:id", h.handleDuplicateForm, require(domain.PermFormDuplicate))
	e.PATCH("/form/change-status/:id", h.handleChangeStatus, require(domain.PermFormChangeStatus))
	e.DELETE("/form/:id", h.handleRemoveForm, require(domain.PermFormDelete))

	e.POST("/store", h.handleSave, require(domain.PermStoreSave))
	e.GET("/store/:formUuid", h.handleShow, require(domain.PermStoreShow))
	e.GET("/store/:formUuid/sessions", h.handleSessions, require(domain.PermStoreShow))

	e.GET("/statistics/forms/:formUuid", h.handleCountSubmissions, require(domain.PermStoreShow))

	e.GET("/realtime", h.handleRealtime, require(domain.PermStoreShow))
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.BadRequestError{Message: "invalid id"}
	}
	return id, nil
}

func actorOf(c echo.Context) domain.Actor {
	actor, _ := middleware.Actor(c.Request().Context())
	return actor
}

func (h *Handler) handleFieldTypes(c echo.Context) error {
	types, err := h.fieldTypes.List(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "field types", types)
}

func (h *Handler) handleCreateForm(c echo.Context) error {
	var input domain.FormInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := c.Validate(&input); err != nil {
		return presenter.Error(c, err)
	}

	form, err := h.forms.Create(c.Request().Context(), input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusCreated, "form created", form)
}

func (h *Handler) handleListForms(c echo.Context) error {
	forms, err := h.forms.List(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "forms", forms)
}

func (h *Handler) handleGetForm(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	form, err := h.forms.Get(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "form", form)
}

func (h *Handler) handleGetFormByUUID(c echo.Context) error {
	form, err := h.forms.GetByUUID(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "form", form)
}

// handleFormSchema serves the compiled schema. Clients revalidate with
// If-None-Match against the schema fingerprint.
func (h *Handler) handleFormSchema(c echo.Context) error {
	s, err := h.forms.Schema(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return presenter.Error(c, err)
	}

	etag := `"` + s.Fingerprint() + `"`
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return presenter.OK(c, s)
}

func (h *Handler) handleUpdateForm(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var input domain.FormInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := c.Validate(&input); err != nil {
		return presenter.Error(c, err)
	}

	form, err := h.forms.Update(c.Request().Context(), id, input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "form updated", form)
}

func (h *Handler) handleAddField(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var input domain.FieldInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := c.Validate(&input); err != nil {
		return presenter.Error(c, err)
	}

	field, err := h.forms.AddField(c.Request().Context(), id, input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "field added", field)
}

type updateFieldsRequest struct {
	Fields []domain.FieldInput `json:"fields" validate:"dive"`
}

func (h *Handler) handleUpdateFields(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	var req updateFieldsRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return presenter.Error(c, err)
	}

	ctx := c.Request().Context()
	if err := h.forms.ReplaceFields(ctx, id, req.Fields); err != nil {
		return presenter.Error(c, err)
	}
	form, err := h.forms.Get(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "fields updated", form)
}

func (h *Handler) handleDuplicateForm(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	form, err := h.forms.Duplicate(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusCreated, "form duplicated", form)
}

func (h *Handler) handleChangeStatus(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	form, err := h.forms.ChangeStatus(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "form status changed", form)
}

func (h *Handler) handleRemoveForm(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	form, err := h.forms.Remove(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "form deleted", form)
}

type saveRequest struct {
	FormUUID string         `json:"formUuid" validate:"required,uuid"`
	Data     map[string]any `json:"data" validate:"required"`
}

func (h *Handler) handleSave(c echo.Context) error {
	// numbers stay json.Number so integers keep their exact text
	decoder := json.NewDecoder(c.Request().Body)
	decoder.UseNumber()

	var req saveRequest
	if err := decoder.Decode(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return presenter.Error(c, err)
	}

	session, err := h.store.Save(c.Request().Context(), req.FormUUID, req.Data, actorOf(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusCreated, "data saved", session)
}

func (h *Handler) handleShow(c echo.Context) error {
	records, err := h.store.Show(c.Request().Context(), c.Param("formUuid"), actorOf(c), c.QueryParam("session"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "data retrieved", records)
}

func (h *Handler) handleSessions(c echo.Context) error {
	sessions, err := h.store.ListSessions(c.Request().Context(), c.Param("formUuid"), actorOf(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Message(c, http.StatusOK, "sessions", sessions)
}

func (h *Handler) handleCountSubmissions(c echo.Context) error {
	formUUID := c.Param("formUuid")
	count, err := h.statistics.CountSubmissions(c.Request().Context(), formUUID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"formUuid": formUUID, "submissions": count})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type  string   `json:"type"`
	Forms []string `json:"forms"`
}

// subscriptions holds the read scope of every form a socket listens to.
type subscriptions struct {
	mu      sync.RWMutex
	filters map[string]domain.RowFilter
}

func (s *subscriptions) replace(filters map[string]domain.RowFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

func (s *subscriptions) admits(event domain.SubmissionEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	filter, ok := s.filters[event.FormUUID]
	return ok && filter.Admits(event)
}

// scope keeps the forms actor may read and returns their uuids.
func (h *Handler) scope(ctx context.Context, forms []string, actor domain.Actor) (map[string]domain.RowFilter, []string) {
	filters := make(map[string]domain.RowFilter, len(forms))
	allowed := make([]string, 0, len(forms))
	for _, formUUID := range forms {
		if _, dup := filters[formUUID]; dup {
			continue
		}
		filter, err := h.store.ReadScope(ctx, formUUID, actor)
		if err != nil {
			slog.DebugContext(
				ctx, "Socket subscription refused",
				slog.String("form", formUUID),
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
			continue
		}
		filters[formUUID] = filter
		allowed = append(allowed, formUUID)
	}
	return filters, allowed
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	actor := actorOf(c)
	subs := &subscriptions{}

	input := make(chan []string)
	output := make(chan domain.SubmissionEvent)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "listen":
				filters, allowed := h.scope(ctx, req.Forms, actor)
				subs.replace(filters)
				select {
				case input <- allowed:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", allowed),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			if !subs.admits(event) {
				continue
			}
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
