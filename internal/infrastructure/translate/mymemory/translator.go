package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/electoral-rag/internal/infrastructure/resilience"
)

const DefaultEndpoint = "https://api.mymemory.translated.net/get"

type Config struct {
	Endpoint   string
	SourceLang string
	TargetLang string
	ChunkChars int
	// RatePerSec bounds outbound requests; zero disables the limit.
	RatePerSec float64
}

// Translator never fails: on error it returns the input with a marker
// appended.
type Translator struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(cfg Config, httpClient *http.Client, executor *resilience.Executor) *Translator {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SourceLang == "" {
		cfg.SourceLang = "en"
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = "si"
	}
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = 500
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Translator{cfg: cfg, httpClient: httpClient, limiter: limiter, executor: executor}
}

func (t *Translator) Translate(ctx context.Context, text string) string {
	chunks := SplitIntoChunks(text, t.cfg.ChunkChars)
	translated := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			translated = append(translated, "")
			continue
		}
		out, err := t.translateChunk(ctx, chunk)
		if err != nil {
			slog.Warn("translation_failed", "target", t.cfg.TargetLang, "error", err)
			return text + "\n\n[Translation error: " + err.Error() + "]"
		}
		translated = append(translated, out)
	}
	return strings.Join(translated, "\n")
}

func (t *Translator) translateChunk(ctx context.Context, chunk string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("q", chunk)
	query.Set("langpair", t.cfg.SourceLang+"|"+t.cfg.TargetLang)
	endpoint := t.cfg.Endpoint + "?" + query.Encode()

	return resilience.Call(ctx, t.executor, "mymemory.translate", func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("create translate request: %w", err)
		}
		resp, err := t.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("translate request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", resilience.NewHTTPStatusError("mymemory", "translate", resp)
		}

		var payload translateResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("decode translate response: %w", err)
		}
		if status := payload.status(); status != 0 && status != http.StatusOK {
			return "", fmt.Errorf("translation service status %d: %s", status, payload.ResponseData.TranslatedText)
		}
		return payload.ResponseData.TranslatedText, nil
	}, resilience.ClassifyHTTPError)
}

type translateResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.RawMessage `json:"responseStatus"`
}

// status tolerates responseStatus as either a number or a string.
func (r translateResponse) status() int {
	raw := strings.Trim(strings.TrimSpace(string(r.ResponseStatus)), `"`)
	var code int
	if _, err := fmt.Sscanf(raw, "%d", &code); err != nil {
		return 0
	}
	return code
}

// SplitIntoChunks groups newline-separated paragraphs into chunks whose
// paragraph lengths sum to at most maxChars. A single paragraph longer than
// maxChars becomes its own chunk.
func SplitIntoChunks(text string, maxChars int) []string {
	var (
		chunks  []string
		current []string
		length  int
	)
	for _, para := range strings.Split(text, "\n") {
		n := len([]rune(para))
		if length+n <= maxChars {
			current = append(current, para)
			length += n
			continue
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
		}
		current = []string{para}
		length = n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}
