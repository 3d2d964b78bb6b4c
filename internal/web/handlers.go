package web

import (
	"math"
	"net/http"

	"github.com/go-chi/render"
	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/sirupsen/logrus"
)

type coverJSON struct {
	Name      string `json:"name"`
	Position  *int   `json:"position"`
	Operation string `json:"operation"`
	State     string `json:"state"`
}

type positionRequest struct {
	Level *float64 `json:"level"`
}

type calibrationRequest struct {
	Action *int `json:"action"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toJSON(c cover.Cover) coverJSON {
	st := c.Status()
	j := coverJSON{
		Name:      c.Name(),
		Operation: string(st.Operation()),
		State:     st.State.String(),
	}
	if st.Level >= 0 {
		p := int(math.Round(st.Level * 100))
		j.Position = &p
	}

	return j
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list := make([]coverJSON, 0, len(s.order))
	for _, name := range s.order {
		list = append(list, toJSON(s.covers[name]))
	}

	render.JSON(w, r, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, toJSON(coverFrom(r)))
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Level == nil {
		respondError(w, r, http.StatusBadRequest, "level is required")
		return
	}

	c := coverFrom(r)
	if err := c.SetPosition(*req.Level); err != nil {
		logrus.Errorf("%s: HTTP set position failed: %s", c.Name(), err)
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, toJSON(c))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	c := coverFrom(r)
	if err := c.Stop(); err != nil {
		logrus.Errorf("%s: HTTP stop failed: %s", c.Name(), err)
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, toJSON(c))
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Action == nil {
		respondError(w, r, http.StatusBadRequest, "action is required")
		return
	}

	action := cover.CalibrationAction(*req.Action)
	switch action {
	case cover.CalibrationReset, cover.CalibrationRaiseTrim, cover.CalibrationLowerTrim:
	default:
		respondError(w, r, http.StatusBadRequest, "action must be 0, 1 or 2")
		return
	}

	c := coverFrom(r)
	if err := c.Calibrate(action); err != nil {
		respondError(w, r, http.StatusConflict, err.Error())
		return
	}

	render.JSON(w, r, toJSON(c))
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorJSON{Error: msg})
}
