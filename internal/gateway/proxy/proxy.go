package proxy

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// hopHeaders не копируются между клиентом и upstream.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
}

// ============================================================
// Proxy Handler
// ============================================================

// Proxy пересылает запросы на один upstream, сохраняя путь и query.
type Proxy struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) *Proxy {
	return &Proxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Handler проксирует любой метод с учетом multipart/raw.
func (p *Proxy) Handler(c fiber.Ctx) error {
	targetURL := p.baseURL + c.OriginalURL()
	contentType := c.Get(fiber.HeaderContentType)

	p.log.Debug("proxy request",
		zap.String("method", c.Method()),
		zap.String("target", targetURL),
		zap.String("content_type", contentType),
		zap.Int("content_length", len(c.Body())),
	)

	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		body, contentType, err = rebuildMultipart(c)
		if err != nil {
			p.log.Warn("invalid multipart", zap.Error(err))
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart data"})
		}
	} else {
		body = c.Body()
	}

	req, err := http.NewRequestWithContext(c.Context(), c.Method(), targetURL, bytes.NewReader(body))
	if err != nil {
		p.log.Error("build request", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	for _, h := range []string{fiber.HeaderAuthorization, fiber.HeaderAccept, fiber.HeaderAcceptLanguage} {
		if v := c.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("upstream unreachable", zap.String("target", targetURL), zap.Error(err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	defer resp.Body.Close()

	return p.copyResponse(c, resp)
}

// rebuildMultipart собирает multipart-тело заново из разобранной формы.
func rebuildMultipart(c fiber.Ctx) ([]byte, string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, files := range form.File {
		for _, fileHeader := range files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, key, fileHeader.Filename))
			if ct := fileHeader.Header.Get(fiber.HeaderContentType); ct != "" {
				h.Set(fiber.HeaderContentType, ct)
			}

			part, err := writer.CreatePart(h)
			if err != nil {
				return nil, "", err
			}
			file, err := fileHeader.Open()
			if err != nil {
				return nil, "", err
			}
			_, err = io.Copy(part, file)
			file.Close()
			if err != nil {
				return nil, "", err
			}
		}
	}

	for key, values := range form.Value {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func (p *Proxy) copyResponse(c fiber.Ctx, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.log.Warn("read upstream response", zap.Error(err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	for key, values := range resp.Header {
		if len(values) > 0 && !hopHeaders[key] && !strings.HasPrefix(key, "Access-Control-") {
			c.Set(key, values[0])
		}
	}

	c.Status(resp.StatusCode)
	return c.Send(data)
}
