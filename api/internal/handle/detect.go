package handle

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/httpserver"
	"github.com/panthibivek/InsightLens/api/internal/pipeline"
	"github.com/panthibivek/InsightLens/api/internal/util"
	"github.com/panthibivek/InsightLens/api/internal/vision"
)

// DetectRequest is the JSON form of a request; multipart uploads carry the same fields
// as form values with the image in "file".
type DetectRequest struct {
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime,omitempty"`
	Question string `json:"question,omitempty"`
	Target   string `json:"target,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Order    string `json:"order,omitempty"`
	Engine   string `json:"engine,omitempty"`
	LLMName  string `json:"llm_name,omitempty"`
}

type DetectResponse struct {
	RequestID  string          `json:"request_id"`
	Engine     string          `json:"engine"`
	Model      string          `json:"model"`
	Mode       string          `json:"mode"`
	Order      string          `json:"order"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Found      bool            `json:"found"`
	Detections []pipeline.Item `json:"detections"`
}

func (h *Handle) Detect(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DetectResponse{
		RequestID:  httpserver.RequestID(r.Context()),
		Engine:     res.Engine,
		Model:      res.Model,
		Mode:       res.Mode.String(),
		Order:      res.Order.String(),
		Width:      res.Width,
		Height:     res.Height,
		Found:      res.Found(),
		Detections: res.Items,
	})
}

func (h *Handle) Annotate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r, true)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Detections-Found", strconv.FormatBool(res.Found()))
	if err := annotate.Encode(w, res.Annotated, "png"); err != nil {
		h.log.Error().Err(err).Str("request_id", httpserver.RequestID(r.Context())).Msg("encode annotated image")
	}
}

func (h *Handle) run(w http.ResponseWriter, r *http.Request, draw bool) (*pipeline.Result, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	in, err := readRequest(r, h.opts.MaxUploadBytes)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	req, engName, err := h.toPipeline(in)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	req.Annotate = draw
	req.Timeout = h.deadline(r)

	eng, err := h.engs.GetEngine(engName)
	if err != nil {
		h.writeError(w, r, &detect.ValueError{Field: "engine", Msg: err.Error()})
		return nil, false
	}

	log := h.log.With().Str("request_id", httpserver.RequestID(r.Context())).Logger()
	res, err := pipeline.New(vision.WithLogging(eng, log), log, h.opts.Style).Run(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return res, true
}

type input struct {
	DetectRequest
	image []byte
}

func readRequest(r *http.Request, maxBytes int64) (input, error) {
	var in input
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&in.DetectRequest); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return in, err
			}
			return in, &detect.ValueError{Field: "body", Msg: "bad json: " + err.Error()}
		}
		img, hint, err := util.DecodeBase64MaybeDataURL(in.ImageB64)
		if err != nil || len(img) == 0 {
			return in, &detect.ValueError{Field: "image_b64", Msg: "expected base64 image data"}
		}
		in.image = img
		if in.MIME == "" {
			in.MIME = hint
		}
		return in, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return in, err
			}
			return in, &detect.ValueError{Field: "body", Msg: "bad multipart form: " + err.Error()}
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			return in, &detect.ValueError{Field: "file", Msg: "missing image upload"}
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return in, err
		}
		if len(data) == 0 {
			return in, &detect.ValueError{Field: "file", Msg: "empty image upload"}
		}
		in.image = data
		in.MIME = fh.Header.Get("Content-Type")
		in.Question = r.FormValue("question")
		in.Target = r.FormValue("target")
		in.Mode = r.FormValue("mode")
		in.Order = r.FormValue("order")
		in.Engine = r.FormValue("engine")
		return in, nil

	default:
		return in, &detect.ValueError{Field: "content type", Msg: "use multipart/form-data or application/json"}
	}
}

// toPipeline fills defaults: a target without an explicit mode means a single box.
func (h *Handle) toPipeline(in input) (pipeline.Request, string, error) {
	req := pipeline.Request{Image: in.image, MIME: in.MIME, Order: h.opts.Order}

	req.Target = strings.TrimSpace(in.Target)
	if req.Target == "" {
		req.Target = strings.TrimSpace(in.Question)
	}

	switch {
	case strings.TrimSpace(in.Mode) != "":
		m, err := detect.ParseMode(in.Mode)
		if err != nil {
			return req, "", err
		}
		req.Mode = m
	case req.Target != "":
		req.Mode = detect.Single
	default:
		req.Mode = detect.Multi
	}

	if strings.TrimSpace(in.Order) != "" {
		o, err := detect.ParseBoxOrder(in.Order)
		if err != nil {
			return req, "", err
		}
		req.Order = o
	}

	eng := in.Engine
	if eng == "" {
		eng = in.LLMName
	}
	if eng == "" {
		eng = h.opts.DefaultEngine
	}
	return req, eng, nil
}

// deadline reads X-Request-Timeout (or ?timeoutSec) in seconds, falling back to the configured timeout.
func (h *Handle) deadline(r *http.Request) time.Duration {
	ts := r.Header.Get("X-Request-Timeout")
	if ts == "" {
		ts = r.URL.Query().Get("timeoutSec")
	}
	if v, err := strconv.Atoi(strings.TrimSpace(ts)); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return h.opts.Timeout
}
