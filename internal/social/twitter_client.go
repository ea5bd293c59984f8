package social

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/STRATINT/replybot/internal/config"
	"github.com/STRATINT/replybot/internal/models"
)

const defaultBaseURL = "https://api.twitter.com"

// TwitterClient handles Twitter API v2 interactions. Reads are authorized with
// the app bearer token, writes with OAuth 1.0a user context.
type TwitterClient struct {
	apiKey            string
	apiSecret         string
	accessToken       string
	accessTokenSecret string
	bearerToken       string
	baseURL           string
	httpClient        *http.Client
	logger            *slog.Logger
}

// NewTwitterClient creates a new Twitter API client
func NewTwitterClient(cfg config.TwitterConfig, logger *slog.Logger) *TwitterClient {
	return &TwitterClient{
		apiKey:            cfg.APIKey,
		apiSecret:         cfg.APISecret,
		accessToken:       cfg.AccessToken,
		accessTokenSecret: cfg.AccessTokenSecret,
		bearerToken:       cfg.BearerToken,
		baseURL:           defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the client at a different API host.
func (c *TwitterClient) WithBaseURL(baseURL string) *TwitterClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// TimelineOptions bounds a read request.
type TimelineOptions struct {
	SinceID    string // only posts newer than this id; empty for no floor
	MaxResults int
}

// TweetRequest represents the request to post a tweet
type TweetRequest struct {
	Text  string        `json:"text"`
	Reply *ReplySetting `json:"reply,omitempty"`
}

// ReplySetting marks a tweet as a reply.
type ReplySetting struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

// TweetResponse represents the response from Twitter API
type TweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Errors []apiError `json:"errors,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Type    string `json:"type"`
	Value   string `json:"value"`
}

type apiTweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
}

type tweetsResponse struct {
	Data []apiTweet `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NewestID    string `json:"newest_id"`
	} `json:"meta"`
}

type usersResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
	Errors []apiError `json:"errors,omitempty"`
}

// UserTimeline fetches the most recent original posts of a user, newest first.
// Retweets and replies are excluded server-side.
func (c *TwitterClient) UserTimeline(ctx context.Context, userID string, opts TimelineOptions) ([]models.Post, error) {
	params := c.readParams(opts)
	params.Set("exclude", "retweets,replies")

	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.baseURL, url.PathEscape(userID), params.Encode())
	return c.getTweets(ctx, endpoint)
}

// SearchAuthor fetches recent original posts authored by handle, newest first.
func (c *TwitterClient) SearchAuthor(ctx context.Context, handle string, opts TimelineOptions) ([]models.Post, error) {
	params := c.readParams(opts)
	params.Set("query", fmt.Sprintf("from:%s -is:retweet -is:reply", models.NormalizeHandle(handle)))

	endpoint := fmt.Sprintf("%s/2/tweets/search/recent?%s", c.baseURL, params.Encode())
	return c.getTweets(ctx, endpoint)
}

// LookupUsers resolves handles to numeric ids in one request. The result is
// keyed by lower-cased username; unknown handles are absent.
func (c *TwitterClient) LookupUsers(ctx context.Context, handles []string) (map[string]string, error) {
	if len(handles) == 0 {
		return map[string]string{}, nil
	}

	names := make([]string, 0, len(handles))
	for _, h := range handles {
		names = append(names, models.NormalizeHandle(h))
	}
	params := url.Values{}
	params.Set("usernames", strings.Join(names, ","))
	endpoint := fmt.Sprintf("%s/2/users/by?%s", c.baseURL, params.Encode())

	body, err := c.doBearer(ctx, OpLookup, endpoint)
	if err != nil {
		return nil, err
	}

	var result usersResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse users response: %w", err)
	}

	ids := make(map[string]string, len(result.Data))
	for _, u := range result.Data {
		ids[strings.ToLower(u.Username)] = u.ID
	}
	for _, e := range result.Errors {
		c.logger.Warn("handle lookup returned error", "value", e.Value, "detail", e.Detail)
	}
	return ids, nil
}

// PostReply posts text as a reply to the given tweet and returns the new tweet id.
func (c *TwitterClient) PostReply(ctx context.Context, inReplyTo, text string) (string, error) {
	apiURL := c.baseURL + "/2/tweets"

	tweetReq := TweetRequest{
		Text:  text,
		Reply: &ReplySetting{InReplyToTweetID: inReplyTo},
	}

	bodyBytes, err := json.Marshal(tweetReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tweet request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	authHeader, err := c.generateOAuthHeader(http.MethodPost, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate OAuth header: %w", err)
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to post tweet: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", newRateLimitError(OpWrite, resp, bodyBytes)
	}

	var tweetResp TweetResponse
	if err := json.Unmarshal(bodyBytes, &tweetResp); err != nil {
		return "", fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusCreated {
		if len(tweetResp.Errors) > 0 {
			return "", fmt.Errorf("twitter API error: %s", tweetResp.Errors[0].Message)
		}
		return "", fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	c.logger.Debug("reply posted",
		"tweet_id", tweetResp.Data.ID,
		"in_reply_to", inReplyTo,
		"text_length", len(text))

	return tweetResp.Data.ID, nil
}

func (c *TwitterClient) readParams(opts TimelineOptions) url.Values {
	maxResults := opts.MaxResults
	// The API rejects pages smaller than 5 (timeline) or 10 (search).
	if maxResults < 10 {
		maxResults = 10
	}
	params := url.Values{}
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("tweet.fields", "created_at,author_id,lang")
	if opts.SinceID != "" {
		params.Set("since_id", opts.SinceID)
	}
	return params
}

func (c *TwitterClient) getTweets(ctx context.Context, endpoint string) ([]models.Post, error) {
	body, err := c.doBearer(ctx, OpRead, endpoint)
	if err != nil {
		return nil, err
	}

	var result tweetsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tweets response: %w", err)
	}

	posts := make([]models.Post, 0, len(result.Data))
	for _, t := range result.Data {
		posts = append(posts, models.Post{
			ID:        t.ID,
			Text:      t.Text,
			AuthorID:  t.AuthorID,
			Lang:      t.Lang,
			CreatedAt: t.CreatedAt,
		})
	}
	return posts, nil
}

// doBearer issues an app-authenticated GET and returns the body of a 200 response.
func (c *TwitterClient) doBearer(ctx context.Context, op Operation, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, newRateLimitError(op, resp, body)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter API error: %d - %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// generateOAuthHeader generates OAuth 1.0a authorization header
func (c *TwitterClient) generateOAuthHeader(method, apiURL string, params map[string]string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonceStr := base64.StdEncoding.EncodeToString(nonce)
	nonceStr = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, nonceStr)

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	oauthParams := map[string]string{
		"oauth_consumer_key":     c.apiKey,
		"oauth_nonce":            nonceStr,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        timestamp,
		"oauth_token":            c.accessToken,
		"oauth_version":          "1.0",
	}

	allParams := make(map[string]string)
	for k, v := range oauthParams {
		allParams[k] = v
	}
	for k, v := range params {
		allParams[k] = v
	}

	var paramPairs []string
	for k, v := range allParams {
		paramPairs = append(paramPairs, percentEncode(k)+"="+percentEncode(v))
	}
	sort.Strings(paramPairs)
	paramString := strings.Join(paramPairs, "&")

	signatureBase := method + "&" + percentEncode(apiURL) + "&" + percentEncode(paramString)
	signingKey := percentEncode(c.apiSecret) + "&" + percentEncode(c.accessTokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(signatureBase))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	var authPairs []string
	for k, v := range oauthParams {
		authPairs = append(authPairs, percentEncode(k)+"=\""+percentEncode(v)+"\"")
	}
	sort.Strings(authPairs)

	return "OAuth " + strings.Join(authPairs, ", "), nil
}

// percentEncode applies RFC 3986 encoding as OAuth 1.0a requires.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
