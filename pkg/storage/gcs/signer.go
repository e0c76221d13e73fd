package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	signedURLHost      = "storage.googleapis.com"
	signingAlgorithm   = "GOOG4-RSA-SHA256"
	requestTypeGoog4   = "goog4_request"
	unsignedPayload    = "UNSIGNED-PAYLOAD"
	maxSignedURLExpiry = 7 * 24 * time.Hour
)

// urlSigner computes V4 signed URLs locally from service-account credentials.
type urlSigner struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	now         func() time.Time
}

func newURLSigner(jsonCreds string) (*urlSigner, error) {
	var creds struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(jsonCreds), &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	priv, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &urlSigner{
		clientEmail: creds.ClientEmail,
		privateKey:  priv,
		now:         time.Now,
	}, nil
}

// Sign builds a V4 signed URL for one object operation.
func (s *urlSigner) Sign(bucket, object, method, contentType string, expires time.Duration) (string, error) {
	if bucket == "" || object == "" {
		return "", errors.New("bucket and object are required")
	}
	if expires <= 0 || expires > maxSignedURLExpiry {
		return "", fmt.Errorf("signed url expiry must be within (0, %s]", maxSignedURLExpiry)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "GET"
	}

	now := s.now().UTC()
	timestamp := now.Format("20060102T150405Z")
	datestamp := now.Format("20060102")
	credentialScope := strings.Join([]string{datestamp, "auto", "storage", requestTypeGoog4}, "/")

	headers := map[string]string{"host": signedURLHost}
	if contentType != "" {
		headers["content-type"] = contentType
	}
	headerNames := make([]string, 0, len(headers))
	for name := range headers {
		headerNames = append(headerNames, name)
	}
	sort.Strings(headerNames)
	signedHeaders := strings.Join(headerNames, ";")

	var canonicalHeaders strings.Builder
	for _, name := range headerNames {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(headers[name])
		canonicalHeaders.WriteString("\n")
	}

	query := url.Values{}
	query.Set("X-Goog-Algorithm", signingAlgorithm)
	query.Set("X-Goog-Credential", s.clientEmail+"/"+credentialScope)
	query.Set("X-Goog-Date", timestamp)
	query.Set("X-Goog-Expires", fmt.Sprintf("%d", int64(expires.Seconds())))
	query.Set("X-Goog-SignedHeaders", signedHeaders)

	resourcePath := "/" + bucket + "/" + escapeObjectName(object)

	canonicalRequest := strings.Join([]string{
		method,
		resourcePath,
		query.Encode(),
		canonicalHeaders.String(),
		signedHeaders,
		unsignedPayload,
	}, "\n")

	requestHash := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		timestamp,
		credentialScope,
		hex.EncodeToString(requestHash[:]),
	}, "\n")

	signHash := sha256.Sum256([]byte(stringToSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.privateKey, crypto.SHA256, signHash[:])
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}

	return fmt.Sprintf(
		"https://%s%s?%s&X-Goog-Signature=%s",
		signedURLHost,
		resourcePath,
		query.Encode(),
		hex.EncodeToString(signature),
	), nil
}

// escapeObjectName percent-encodes each path segment but keeps separators.
func escapeObjectName(object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
