package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	authflow "github.com/abjadnlp2026-anon/arabic-dialect-hub"
)

const (
	defaultBaseURL = "https://api.id.abjadhub.app"

	pathSignIns  = "/v1/client/sign_ins"
	pathSignUps  = "/v1/client/sign_ups"
	pathSessions = "/v1/client/sessions"

	strategyEmailCode = "email_code"
)

// ErrRequestFailed wraps transport failures, unreadable responses, and
// undecodable payloads. Provider rejections are returned as
// [*authflow.ProviderError] instead.
var ErrRequestFailed = errors.New("identity platform request failed")

// Config holds the platform client settings.
type Config struct {
	// BaseURL overrides the hosted platform URL. Mostly for tests.
	BaseURL string
	// PublishableKey is the public client key for this application instance.
	PublishableKey string
	// HTTPClient overrides the transport. Defaults to http.DefaultClient;
	// callers bound request time through the context.
	HTTPClient *http.Client
}

// Client drives the hosted identity platform's client API. It implements
// [authflow.Provider].
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// New creates a platform client.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: httpClient,
	}
}

// Capabilities reports the platform contract: a session is issued when the
// sign-up attempt is created and may be activated while email verification is
// still pending.
func (c *Client) Capabilities() authflow.ProviderCapabilities {
	return authflow.ProviderCapabilities{SessionBeforeVerification: true}
}

type signInRequest struct {
	Strategy   string `json:"strategy"`
	Identifier string `json:"identifier"`
	Password   string `json:"password,omitempty"`
}

type signUpRequest struct {
	EmailAddress   string                   `json:"email_address"`
	Password       string                   `json:"password"`
	Username       string                   `json:"username,omitempty"`
	UnsafeMetadata authflow.ProfileMetadata `json:"unsafe_metadata"`
}

type prepareVerificationRequest struct {
	Strategy string `json:"strategy"`
}

type attemptVerificationRequest struct {
	Strategy string `json:"strategy"`
	Code     string `json:"code"`
}

type updateMetadataRequest struct {
	UnsafeMetadata authflow.ProfileMetadata `json:"unsafe_metadata"`
}

type attemptResponse struct {
	ID                  string   `json:"id"`
	Status              string   `json:"status"`
	CreatedSessionID    string   `json:"created_session_id"`
	MissingRequirements []string `json:"missing_requirements"`
}

type errorResponse struct {
	Errors []struct {
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
		Code        string `json:"code"`
	} `json:"errors"`
}

// CreateSignIn starts a sign-in attempt.
func (c *Client) CreateSignIn(ctx context.Context, params authflow.SignInParams) (authflow.Attempt, error) {
	var out attemptResponse
	err := c.do(ctx, http.MethodPost, pathSignIns, signInRequest{
		Strategy:   string(params.Strategy),
		Identifier: params.Identifier,
		Password:   params.Password,
	}, &out)
	if err != nil {
		return authflow.Attempt{}, err
	}
	return out.attempt(), nil
}

// CreateSignUp starts a sign-up attempt.
func (c *Client) CreateSignUp(ctx context.Context, params authflow.SignUpParams) (authflow.Attempt, error) {
	var out attemptResponse
	err := c.do(ctx, http.MethodPost, pathSignUps, signUpRequest{
		EmailAddress:   params.EmailAddress,
		Password:       params.Password,
		Username:       params.Username,
		UnsafeMetadata: params.Metadata,
	}, &out)
	if err != nil {
		return authflow.Attempt{}, err
	}
	return out.attempt(), nil
}

// PrepareEmailVerification asks the platform to email a verification code for
// the sign-up attempt.
func (c *Client) PrepareEmailVerification(ctx context.Context, signUpID string) error {
	path := pathSignUps + "/" + url.PathEscape(signUpID) + "/prepare_verification"
	return c.do(ctx, http.MethodPost, path, prepareVerificationRequest{Strategy: strategyEmailCode}, nil)
}

// AttemptEmailVerification submits the emailed code for the sign-up attempt.
func (c *Client) AttemptEmailVerification(ctx context.Context, signUpID, code string) (authflow.Attempt, error) {
	path := pathSignUps + "/" + url.PathEscape(signUpID) + "/attempt_verification"
	var out attemptResponse
	err := c.do(ctx, http.MethodPost, path, attemptVerificationRequest{
		Strategy: strategyEmailCode,
		Code:     code,
	}, &out)
	if err != nil {
		return authflow.Attempt{}, err
	}
	return out.attempt(), nil
}

// UpdateSignUpMetadata patches the unsafe metadata on the sign-up attempt.
func (c *Client) UpdateSignUpMetadata(ctx context.Context, signUpID string, metadata authflow.ProfileMetadata) error {
	path := pathSignUps + "/" + url.PathEscape(signUpID)
	return c.do(ctx, http.MethodPatch, path, updateMetadataRequest{UnsafeMetadata: metadata}, nil)
}

// ActivateSession makes the session the client's active one.
func (c *Client) ActivateSession(ctx context.Context, sessionID string) error {
	path := pathSessions + "/" + url.PathEscape(sessionID) + "/activate"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (r attemptResponse) attempt() authflow.Attempt {
	att := authflow.Attempt{
		ID:                  r.ID,
		CreatedSessionID:    r.CreatedSessionID,
		MissingRequirements: r.MissingRequirements,
	}
	switch r.Status {
	case "complete":
		att.Status = authflow.AttemptComplete
	case "missing_requirements":
		att.Status = authflow.AttemptMissingRequirements
	default:
		att.Status = authflow.AttemptUnknown
	}
	return att
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.PublishableKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.PublishableKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return rejectionError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrRequestFailed, err)
	}
	return nil
}

// rejectionError shapes a non-2xx platform response into the rejection the
// flow classifies. Message extraction is best effort: an undecodable body
// still yields a ProviderError so the flow can fall back to its generic text.
func rejectionError(status int, body []byte) error {
	pe := &authflow.ProviderError{StatusCode: status}

	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil {
		for _, e := range decoded.Errors {
			msg := e.LongMessage
			if msg == "" {
				msg = e.Message
			}
			if msg != "" {
				pe.Messages = append(pe.Messages, msg)
			}
		}
	}
	return pe
}
