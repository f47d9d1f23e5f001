package http

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sort"
	"strings"
	"time"
)

// HTTP authentication schemes accepted by the httpauth option.
const (
	AuthBasic  = "basic"
	AuthDigest = "digest"
	AuthAny    = "any"
)

// credentials splits a userpwd value on its first colon.
func credentials(userpwd string) (user, password string) {
	user, password, _ = strings.Cut(userpwd, ":")
	return user, password
}

// DigestAuth contains the parameters needed for digest authentication
type DigestAuth struct {
	Username string
	Password string
	Realm    string
	Nonce    string
	URI      string
	Qop      string
	Nc       string
	Cnonce   string
	Opaque   string
	Method   string
}

// ParseWWWAuthenticate parses the parameters of a WWW-Authenticate
// challenge. Quoted values may contain commas.
func ParseWWWAuthenticate(header string) map[string]string {
	result := make(map[string]string)
	if _, rest, ok := strings.Cut(strings.TrimSpace(header), " "); ok {
		header = rest
	}

	for len(header) > 0 {
		header = strings.TrimLeft(header, " ,")
		eq := strings.IndexByte(header, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(header[:eq]))
		header = header[eq+1:]

		var value string
		if strings.HasPrefix(header, `"`) {
			end := strings.IndexByte(header[1:], '"')
			if end < 0 {
				value, header = header[1:], ""
			} else {
				value, header = header[1:end+1], header[end+2:]
			}
		} else {
			value, header, _ = strings.Cut(header, ",")
			value = strings.TrimSpace(value)
		}
		result[key] = value
	}

	return result
}

// newDigestAuth answers a Digest challenge for one request. Only the
// "auth" quality of protection is used when the server offers a choice.
func newDigestAuth(challenge, userpwd, method, uri string) (*DigestAuth, error) {
	params := ParseWWWAuthenticate(challenge)
	user, password := credentials(userpwd)
	d := &DigestAuth{
		Username: user,
		Password: password,
		Realm:    params["realm"],
		Nonce:    params["nonce"],
		Opaque:   params["opaque"],
		URI:      uri,
		Method:   method,
	}
	for _, qop := range strings.Split(params["qop"], ",") {
		if strings.TrimSpace(qop) == "auth" {
			d.Qop = "auth"
			d.Nc = "00000001"
			cnonce, err := GenerateCnonce()
			if err != nil {
				return nil, err
			}
			d.Cnonce = cnonce
			break
		}
	}
	return d, nil
}

// ComputeDigestResponse calculates the digest response hash
func (d *DigestAuth) ComputeDigestResponse() string {
	ha1 := md5Hash(fmt.Sprintf("%s:%s:%s", d.Username, d.Realm, d.Password))
	ha2 := md5Hash(fmt.Sprintf("%s:%s", d.Method, d.URI))

	if d.Qop == "auth" {
		return md5Hash(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.Nonce, d.Nc, d.Cnonce, d.Qop, ha2))
	}
	return md5Hash(fmt.Sprintf("%s:%s:%s", ha1, d.Nonce, ha2))
}

// BuildAuthorizationHeader creates the Authorization header value
func (d *DigestAuth) BuildAuthorizationHeader() string {
	parts := []string{
		fmt.Sprintf(`username="%s"`, d.Username),
		fmt.Sprintf(`realm="%s"`, d.Realm),
		fmt.Sprintf(`nonce="%s"`, d.Nonce),
		fmt.Sprintf(`uri="%s"`, d.URI),
		fmt.Sprintf(`response="%s"`, d.ComputeDigestResponse()),
	}

	if d.Qop != "" {
		parts = append(parts,
			fmt.Sprintf(`qop=%s`, d.Qop),
			fmt.Sprintf(`nc=%s`, d.Nc),
			fmt.Sprintf(`cnonce="%s"`, d.Cnonce))
	}

	if d.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, d.Opaque))
	}

	return "Digest " + strings.Join(parts, ", ")
}

// GenerateCnonce generates a random client nonce
func GenerateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func md5Hash(s string) string {
	h := md5.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// AWSSigner signs requests with AWS Signature Version 4. The aws-sigv4
// option value has the form "provider1[:provider2[:region[:service]]]";
// region and service default to the ones in a *.amazonaws.com host.
type AWSSigner struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
}

func newAWSSigner(param, userpwd, host string) (*AWSSigner, error) {
	parts := strings.Split(param, ":")
	if parts[0] == "" || len(parts) > 4 {
		return nil, NewTransportError(CodeBadFunctionArgument, fmt.Sprintf("invalid aws-sigv4 value %q", param))
	}
	if userpwd == "" {
		return nil, NewTransportError(CodeBadFunctionArgument, "aws-sigv4 needs userpwd set to access-key:secret-key")
	}

	s := &AWSSigner{}
	s.AccessKey, s.SecretKey = credentials(userpwd)
	if len(parts) > 2 {
		s.Region = parts[2]
	}
	if len(parts) > 3 {
		s.Service = parts[3]
	}

	// service.region.amazonaws.com
	labels := strings.Split(strings.Split(host, ":")[0], ".")
	if s.Service == "" && len(labels) > 0 {
		s.Service = labels[0]
	}
	if s.Region == "" && len(labels) > 1 {
		s.Region = labels[1]
	}
	if s.Service == "" || s.Region == "" {
		return nil, NewTransportError(CodeBadFunctionArgument, "aws-sigv4 cannot derive region and service from "+host)
	}
	return s, nil
}

// Sign sets X-Amz-Date, X-Amz-Content-Sha256 and Authorization on req.
func (s *AWSSigner) Sign(req *http.Request, body []byte, now time.Time) {
	t := now.UTC()
	amzDate := t.Format("20060102T150405Z")
	dateStamp := t.Format("20060102")

	payloadHash := sha256Hash(string(body))
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	signedHeaders := "host;x-amz-content-sha256;x-amz-date"
	canonicalHeaders := fmt.Sprintf("host:%s\nx-amz-content-sha256:%s\nx-amz-date:%s\n", host, payloadHash, amzDate)

	canonicalURI := req.URL.EscapedPath()
	if canonicalURI == "" {
		canonicalURI = "/"
	}

	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI,
		createCanonicalQueryString(req.URL.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, s.Region, s.Service)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hash(canonicalRequest),
	}, "\n")

	signingKey := getSignatureKey(s.SecretKey, dateStamp, s.Region, s.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf("AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.AccessKey, credentialScope, signedHeaders, signature))
}

func createCanonicalQueryString(values neturl.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vals := values[k]
		sort.Strings(vals)
		for _, v := range vals {
			pairs = append(pairs, escapeAWS(k)+"="+escapeAWS(v))
		}
	}

	return strings.Join(pairs, "&")
}

// escapeAWS percent-encodes everything but unreserved characters.
func escapeAWS(s string) string {
	return strings.NewReplacer("+", "%20", "%7E", "~").Replace(neturl.QueryEscape(s))
}

func sha256Hash(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func getSignatureKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}
