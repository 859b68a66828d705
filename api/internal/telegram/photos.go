package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/panthibivek/InsightLens/api/internal/annotate"
	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/pipeline"
	"github.com/panthibivek/InsightLens/api/internal/vision"
)

func isImageDocument(d *tgbotapi.Document) bool {
	return d != nil && strings.HasPrefix(d.MimeType, "image/")
}

// acceptPhoto downloads the largest size of the photo and processes it in the background.
func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message) {
	cid := msg.Chat.ID

	fileID, mime := "", ""
	if len(msg.Photo) > 0 {
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	} else {
		fileID, mime = msg.Document.FileID, msg.Document.MimeType
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.processPhoto(ctx, cid, msg.MessageID, fileID, mime, msg.Caption)
	}()
}

func (r *Router) processPhoto(ctx context.Context, cid int64, replyTo int, fileID, mime, caption string) {
	runID := uuid.NewString()
	log := r.Log.With().Int64("chat_id", cid).Str("run_id", runID).Logger()

	eng := r.EngManager.Get(cid)
	if eng == nil {
		r.send(cid, "No vision engine is configured. Use /engine to pick one.")
		return
	}

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(cid, fmt.Errorf("telegram file url: %w", err))
		return
	}
	data, err := r.download(ctx, url)
	if err != nil {
		r.sendError(cid, fmt.Errorf("download photo: %w", err))
		return
	}

	target := strings.TrimSpace(caption)
	mode := detect.Multi
	if target != "" {
		mode = detect.Single
	}

	res, err := pipeline.New(vision.WithLogging(eng, log), log, r.Style).Run(ctx, pipeline.Request{
		Image:    data,
		MIME:     mime,
		Mode:     mode,
		Order:    r.order(cid),
		Target:   target,
		Annotate: true,
		Timeout:  r.Timeout,
	})
	if err != nil {
		r.sendError(cid, err)
		return
	}

	if !res.Found() {
		msg := tgbotapi.NewMessage(cid, "Not found.")
		if target != "" {
			msg.Text = fmt.Sprintf("Could not find %q in this photo.", target)
		}
		msg.ReplyToMessageID = replyTo
		if _, err := r.Bot.Send(msg); err != nil {
			log.Warn().Err(err).Msg("telegram send")
		}
		return
	}

	var buf bytes.Buffer
	if err := annotate.Encode(&buf, res.Annotated, "png"); err != nil {
		r.sendError(cid, err)
		return
	}
	photo := tgbotapi.NewPhoto(cid, tgbotapi.FileBytes{Name: "annotated.png", Bytes: buf.Bytes()})
	photo.Caption = resultCaption(res, target)
	photo.ReplyToMessageID = replyTo
	if _, err := r.Bot.Send(photo); err != nil {
		log.Error().Err(err).Msg("send annotated photo")
	}
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}

	limit := r.MaxPhotoBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &detect.ValueError{Field: "image", Msg: fmt.Sprintf("photo is larger than %d bytes", limit)}
	}
	return data, nil
}

func (r *Router) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return &http.Client{Timeout: 60 * time.Second}
}
