package platform

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature"

var errNoReport = errors.New("platform: run has no report")

// Client publishes finished simulation results to the game platform
// (Next.js) so game math pages show the measured RTP.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewClient(baseURL, secret string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// RTPResult is the body posted for a finalized run.
type RTPResult struct {
	RunID        string    `json:"runId"`
	GameID       string    `json:"gameId"`
	GameName     string    `json:"gameName"`
	Spins        int64     `json:"spins"`
	RTP          float64   `json:"rtp"`
	HitFrequency float64   `json:"hitFrequency"`
	Variance     float64   `json:"variance"`
	MaxWin       float64   `json:"maxWin"`
	Seed         uint64    `json:"seed,string"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// PublishReport posts the result of rec to /api/games/{gameId}/rtp.
// It returns the HTTP status of the platform response.
func (c *Client) PublishReport(ctx context.Context, rec *run.Record) (int, error) {
	if rec.Report == nil {
		return 0, errNoReport
	}
	res := RTPResult{
		RunID:        rec.ID,
		GameID:       rec.GameID,
		GameName:     rec.GameName,
		Spins:        rec.Report.Spins,
		RTP:          rec.Report.RTP,
		HitFrequency: rec.Report.HitFrequency,
		Variance:     rec.Report.Variance,
		MaxWin:       rec.Report.MaxWin,
		Seed:         rec.Seed,
	}
	if rec.FinishedAt != nil {
		res.FinishedAt = rec.FinishedAt.UTC()
	}
	body, err := json.Marshal(res)
	if err != nil {
		return 0, err
	}
	u := c.baseURL + "/api/games/" + url.PathEscape(rec.GameID) + "/rtp"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, Sign(c.secret, body))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var data struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(respBody, &data)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("platform: %s", data.Error)
	}
	return resp.StatusCode, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// Verify reports whether sig is the signature of body under secret.
func Verify(secret string, body []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hmac.Equal(m.Sum(nil), want)
}
