package multiview

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"multiview/internal/geometry"
	"multiview/internal/keybind"
	"multiview/internal/platform/httputil"
	"multiview/internal/platform/metrics"
	"multiview/internal/player"
	"multiview/internal/stream"
	"multiview/internal/timesync"
)

// Handler exposes the controller over HTTP using go-chi.
type Handler struct {
	ctrl    *Controller
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler for ctrl. Metrics may be nil to disable
// metric recording (e.g. in tests).
func NewHandler(ctrl *Controller, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{ctrl: ctrl, log: log, metrics: m}
}

// Routes registers every control endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/state", h.GetState)
	r.Get("/rects/{target}", h.GetRect)
	r.Get("/cursor", h.GetCursor)

	r.Route("/slots/{slot}", func(r chi.Router) {
		r.Put("/", h.SetStream)
		r.Delete("/", h.ClearStream)
		r.Post("/volume", h.SetVolume)
		r.Post("/mute", h.Mute)
		r.Post("/unmute", h.Unmute)
		r.Post("/quality", h.SetQuality)
		r.Post("/metadata", h.SetMetadata)
		r.Post("/report", h.Report)
	})

	r.Route("/layout", func(r chi.Router) {
		r.Post("/", h.SetMode)
		r.Post("/swap", h.Swap)
		r.Post("/focus/next", h.FocusNext)
		r.Post("/focus/prev", h.FocusPrev)
		r.Put("/split", h.SetSplit)
		r.Put("/measurements", h.SetMeasurements)
		r.Post("/panels/{panel}/toggle", h.TogglePanel)
	})
	r.Put("/viewport", h.SetViewport)

	r.Route("/pip/pointer", func(r chi.Router) {
		r.Post("/down", h.PointerDown)
		r.Post("/move", h.PointerMove)
		r.Post("/up", h.PointerUp)
	})

	r.Route("/sync", func(r chi.Router) {
		r.Post("/markers/{slot}", h.SetMarker)
		r.Post("/apply", h.ApplyMarker)
		r.Post("/now", h.SyncNow)
		r.Post("/live/{slot}", h.GoLive)
		r.Post("/nudge/{slot}", h.Nudge)
		r.Post("/playpause", h.PlayPauseAll)
		r.Put("/target", h.SetSyncTarget)
	})

	r.Post("/keys", h.HandleKey)
	r.Post("/actions/{action}", h.Perform)
	r.Route("/keybindings", func(r chi.Router) {
		r.Get("/", h.GetBindings)
		r.Delete("/", h.ResetBindings)
		r.Put("/{action}", h.Bind)
		r.Delete("/{action}/{index}", h.Unbind)
	})
}

type okBody struct {
	OK bool `json:"ok"`
}

// fail maps err to a status code: invalid input is 400, a state conflict 409.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stream.ErrInvalidID),
		errors.Is(err, stream.ErrInvalidSlot),
		errors.Is(err, geometry.ErrUnknownMode),
		errors.Is(err, geometry.ErrUnknownHandle),
		errors.Is(err, keybind.ErrUnknownAction),
		errors.Is(err, keybind.ErrInvalidTrigger),
		errors.Is(err, keybind.ErrInvalidIndex),
		errors.Is(err, timesync.ErrUnknownStrategy),
		errors.Is(err, ErrUnknownPanel):
		h.log.Debug("request rejected", slog.String("error", err.Error()))
		h.reject("invalid_input")
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPipInactive), errors.Is(err, ErrSlotEmpty):
		h.reject("conflict")
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", slog.String("error", err.Error()))
		h.reject("internal")
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) reject(reason string) {
	if h.metrics != nil {
		h.metrics.IncRejected(reason)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		h.log.Debug("invalid body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.reject("invalid_body")
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) slotParam(w http.ResponseWriter, r *http.Request) (stream.Slot, bool) {
	s, err := stream.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		h.fail(w, err)
		return 0, false
	}
	return s, true
}

// GetState handles GET /state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// GetRect handles GET /rects/{target}.
func (h *Handler) GetRect(w http.ResponseWriter, r *http.Request) {
	rect, err := h.ctrl.Rect(chi.URLParam(r, "target"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rect)
}

// GetCursor handles GET /cursor.
func (h *Handler) GetCursor(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"cursor": h.ctrl.Cursor()})
}

// SetStream handles PUT /slots/{slot}. Body: {"stream": "<id or url>"}.
func (h *Handler) SetStream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Stream string `json:"stream"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.ctrl.SetStream(s, body.Stream); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearStream handles DELETE /slots/{slot}.
func (h *Handler) ClearStream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	if err := h.ctrl.ClearStream(s); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetVolume handles POST /slots/{slot}/volume. Body: {"volume": 0-100}.
func (h *Handler) SetVolume(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Volume int `json:"volume"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.ctrl.SetVolume(s, body.Volume); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mute handles POST /slots/{slot}/mute.
func (h *Handler) Mute(w http.ResponseWriter, r *http.Request) {
	h.setMuted(w, r, true)
}

// Unmute handles POST /slots/{slot}/unmute.
func (h *Handler) Unmute(w http.ResponseWriter, r *http.Request) {
	h.setMuted(w, r, false)
}

func (h *Handler) setMuted(w http.ResponseWriter, r *http.Request, muted bool) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	if err := h.ctrl.SetMuted(s, muted); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetQuality handles POST /slots/{slot}/quality. Body: {"quality": "hd1080"}.
func (h *Handler) SetQuality(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Quality string `json:"quality"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.ctrl.SetQuality(s, body.Quality); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMetadata handles POST /slots/{slot}/metadata.
func (h *Handler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	var md stream.Metadata
	if !h.decode(w, r, &md) {
		return
	}
	if err := h.ctrl.SetMetadata(s, md); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report handles POST /slots/{slot}/report. Body: {"time": 12.5, "state": 1}.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	var rep player.Report
	if !h.decode(w, r, &rep) {
		return
	}
	rep.Slot = s
	if err := h.ctrl.Report(rep); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMode handles POST /layout. Body: {"mode": "three_column"}.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.ctrl.SetMode(body.Mode); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Swap handles POST /layout/swap.
func (h *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Swap()
	w.WriteHeader(http.StatusNoContent)
}

// FocusNext handles POST /layout/focus/next.
func (h *Handler) FocusNext(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]stream.Slot{"focus": h.ctrl.FocusNext()})
}

// FocusPrev handles POST /layout/focus/prev.
func (h *Handler) FocusPrev(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]stream.Slot{"focus": h.ctrl.FocusPrev()})
}

// SetSplit handles PUT /layout/split. Body: {"primary": 0.6, "chatWidth": 320}.
func (h *Handler) SetSplit(w http.ResponseWriter, r *http.Request) {
	var split geometry.Split
	if !h.decode(w, r, &split) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.ctrl.SetSplit(split))
}

// SetMeasurements handles PUT /layout/measurements. Body: {"primary": Rect, "secondary": Rect}.
func (h *Handler) SetMeasurements(w http.ResponseWriter, r *http.Request) {
	var m map[geometry.Cell]geometry.Rect
	if !h.decode(w, r, &m) {
		return
	}
	h.ctrl.SetMeasurements(m)
	w.WriteHeader(http.StatusNoContent)
}

// TogglePanel handles POST /layout/panels/{panel}/toggle.
func (h *Handler) TogglePanel(w http.ResponseWriter, r *http.Request) {
	visible, err := h.ctrl.TogglePanel(Panel(chi.URLParam(r, "panel")))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"visible": visible})
}

// SetViewport handles PUT /viewport. Body: {"width": 1280, "height": 720}.
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var size geometry.Size
	if !h.decode(w, r, &size) {
		return
	}
	h.ctrl.SetViewport(size)
	w.WriteHeader(http.StatusNoContent)
}

type pointerBody struct {
	Handle     string  `json:"handle"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	LockAspect *bool   `json:"lockAspect"`
}

// PointerDown handles POST /pip/pointer/down.
func (h *Handler) PointerDown(w http.ResponseWriter, r *http.Request) {
	var body pointerBody
	if !h.decode(w, r, &body) {
		return
	}
	lock := h.ctrl.DefaultLockAspect()
	if body.LockAspect != nil {
		lock = *body.LockAspect
	}
	if err := h.ctrl.PointerDown(body.Handle, body.X, body.Y, lock); err != nil {
		h.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"cursor": h.ctrl.Cursor()})
}

// PointerMove handles POST /pip/pointer/move.
func (h *Handler) PointerMove(w http.ResponseWriter, r *http.Request) {
	var body pointerBody
	if !h.decode(w, r, &body) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody{OK: h.ctrl.PointerMove(body.X, body.Y)})
}

// PointerUp handles POST /pip/pointer/up.
func (h *Handler) PointerUp(w http.ResponseWriter, r *http.Request) {
	h.ctrl.PointerUp()
	w.WriteHeader(http.StatusNoContent)
}

// SetMarker handles POST /sync/markers/{slot}.
func (h *Handler) SetMarker(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody{OK: h.ctrl.SetMarker(s)})
}

// ApplyMarker handles POST /sync/apply. Body: {"from": "s1", "to": "s2"}.
func (h *Handler) ApplyMarker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From stream.Slot `json:"from"`
		To   stream.Slot `json:"to"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody{OK: h.ctrl.ApplyMarker(body.From, body.To)})
}

// SyncNow handles POST /sync/now.
func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ctrl.SyncNow()
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, okBody{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		OK         bool                `json:"ok"`
		Correction timesync.Correction `json:"correction"`
	}{true, c})
}

// GoLive handles POST /sync/live/{slot}.
func (h *Handler) GoLive(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody{OK: h.ctrl.GoLive(s)})
}

// Nudge handles POST /sync/nudge/{slot}. Body: {"seconds": -10}.
func (h *Handler) Nudge(w http.ResponseWriter, r *http.Request) {
	s, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	body := struct {
		Seconds float64 `json:"seconds"`
	}{Seconds: timesync.NudgeStep}
	if !h.decode(w, r, &body) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody{OK: h.ctrl.Nudge(s, body.Seconds)})
}

// PlayPauseAll handles POST /sync/playpause.
func (h *Handler) PlayPauseAll(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"playing": h.ctrl.PlayPauseAll()})
}

// SetSyncTarget handles PUT /sync/target. Body: {"targetDrift": 1.5, "moveStrategy": "auto"}.
func (h *Handler) SetSyncTarget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetDrift  float64 `json:"targetDrift"`
		MoveStrategy string  `json:"moveStrategy"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.ctrl.SetSyncTarget(body.TargetDrift, body.MoveStrategy); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleKey handles POST /keys. It answers 200 with the fired action, or
// 204 when the event resolves to nothing.
func (h *Handler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var ev keybind.Event
	if !h.decode(w, r, &ev) {
		return
	}
	a, ok := h.ctrl.HandleKey(ev)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]keybind.Action{"action": a})
}

// Perform handles POST /actions/{action}.
func (h *Handler) Perform(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Perform(keybind.Action(chi.URLParam(r, "action"))); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBindings handles GET /keybindings.
func (h *Handler) GetBindings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.ctrl.Bindings())
}

// Bind handles PUT /keybindings/{action}. Body: {"index": 0, "trigger": "g"}.
func (h *Handler) Bind(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index   int    `json:"index"`
		Trigger string `json:"trigger"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	a := keybind.Action(chi.URLParam(r, "action"))
	if err := h.ctrl.Bind(a, body.Index, body.Trigger); err != nil {
		h.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.ctrl.Bindings())
}

// Unbind handles DELETE /keybindings/{action}/{index}.
func (h *Handler) Unbind(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.reject("invalid_input")
		httputil.WriteError(w, http.StatusBadRequest, "invalid index")
		return
	}
	if err := h.ctrl.Unbind(keybind.Action(chi.URLParam(r, "action")), index); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetBindings handles DELETE /keybindings.
func (h *Handler) ResetBindings(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ResetBindings()
	w.WriteHeader(http.StatusNoContent)
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleMessage handles one websocket frame from the render layer:
// player reports, key events, viewport and measurement updates.
func (h *Handler) HandleMessage(clientID string, msg []byte) {
	var in inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		h.log.Debug("invalid client message", slog.String("client_id", clientID), slog.String("error", err.Error()))
		return
	}
	var err error
	switch in.Type {
	case "report":
		var rep player.Report
		if err = json.Unmarshal(in.Data, &rep); err == nil {
			err = h.ctrl.Report(rep)
		}
	case "key":
		var ev keybind.Event
		if err = json.Unmarshal(in.Data, &ev); err == nil {
			h.ctrl.HandleKey(ev)
		}
	case "viewport":
		var size geometry.Size
		if err = json.Unmarshal(in.Data, &size); err == nil {
			h.ctrl.SetViewport(size)
		}
	case "measurements":
		var m map[geometry.Cell]geometry.Rect
		if err = json.Unmarshal(in.Data, &m); err == nil {
			h.ctrl.SetMeasurements(m)
		}
	default:
		h.log.Debug("unknown client message", slog.String("client_id", clientID), slog.String("type", in.Type))
		return
	}
	if err != nil {
		h.log.Debug("client message rejected",
			slog.String("client_id", clientID),
			slog.String("type", in.Type),
			slog.String("error", err.Error()))
	}
}

// Greeting returns the frames a newly connected client receives: the
// current snapshot.
func (h *Handler) Greeting() [][]byte {
	b, err := json.Marshal(Message{Type: "snapshot", Data: h.ctrl.Snapshot()})
	if err != nil {
		h.log.Error("encode greeting failed", slog.String("error", err.Error()))
		return nil
	}
	return [][]byte{b}
}
