package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWWWAuthenticate(t *testing.T) {
	params := ParseWWWAuthenticate(`Digest realm="api, v2", qop="auth,auth-int", nonce="abc", algorithm=MD5`)
	assert.Equal(t, "api, v2", params["realm"])
	assert.Equal(t, "auth,auth-int", params["qop"])
	assert.Equal(t, "abc", params["nonce"])
	assert.Equal(t, "MD5", params["algorithm"])
}

func TestDigestAuth_ComputeDigestResponse(t *testing.T) {
	// RFC 2617 section 3.5
	d := &DigestAuth{
		Username: "Mufasa",
		Password: "Circle Of Life",
		Realm:    "testrealm@host.com",
		Nonce:    "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		URI:      "/dir/index.html",
		Qop:      "auth",
		Nc:       "00000001",
		Cnonce:   "0a4f113b",
		Method:   "GET",
	}
	assert.Equal(t, "6629fae49393a05397450978507c4ef1", d.ComputeDigestResponse())
	assert.Contains(t, d.BuildAuthorizationHeader(), `response="6629fae49393a05397450978507c4ef1"`)
}

func TestPerform_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ada" || pass != "s3:cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("welcome"))
	}))
	defer server.Close()

	resp, err := perform(t, server.URL, func(s *Settings) {
		s.UserPwd = "ada:s3:cret"
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "welcome", resp.BodyString())
}

func digestServer(t *testing.T, password string) *httptest.Server {
	t.Helper()
	const nonce = "n0nce"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Digest ") {
			w.Header().Set("WWW-Authenticate", `Digest realm="test", qop="auth", nonce="`+nonce+`", opaque="op"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		params := ParseWWWAuthenticate(header)
		expected := (&DigestAuth{
			Username: params["username"],
			Password: password,
			Realm:    "test",
			Nonce:    nonce,
			URI:      params["uri"],
			Qop:      params["qop"],
			Nc:       params["nc"],
			Cnonce:   params["cnonce"],
			Method:   r.Method,
		}).ComputeDigestResponse()
		if params["response"] != expected || params["opaque"] != "op" || params["uri"] != r.URL.RequestURI() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("digest ok"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPerform_DigestAuth(t *testing.T) {
	server := digestServer(t, "pw")

	resp, err := perform(t, server.URL+"/secret?x=1", func(s *Settings) {
		s.UserPwd = "ada:pw"
		s.HTTPAuth = AuthDigest
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "digest ok", resp.BodyString())

	resp, err = perform(t, server.URL, func(s *Settings) {
		s.UserPwd = "ada:wrong"
		s.HTTPAuth = AuthAny
	})
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	// basic is not retried against a digest challenge
	resp, err = perform(t, server.URL, func(s *Settings) {
		s.UserPwd = "ada:pw"
	})
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestAWSSigner(t *testing.T) {
	signer, err := newAWSSigner("aws:amz", "AKID:SECRET", "s3.eu-west-1.amazonaws.com")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", signer.Region)
	assert.Equal(t, "s3", signer.Service)

	signer, err = newAWSSigner("aws:amz:us-east-1:execute-api", "AKID:SECRET", "localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", signer.Region)
	assert.Equal(t, "execute-api", signer.Service)

	_, err = newAWSSigner("aws:amz", "", "s3.eu-west-1.amazonaws.com")
	assert.Error(t, err)
	_, err = newAWSSigner("", "AKID:SECRET", "s3.eu-west-1.amazonaws.com")
	assert.Error(t, err)

	req, err := http.NewRequestWithContext(context.Background(), "GET", "https://example.test/items?b=2&a=x~y", nil)
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	signer.Sign(req, nil, now)

	assert.Equal(t, "20240301T120000Z", req.Header.Get("X-Amz-Date"))
	assert.Equal(t, sha256Hash(""), req.Header.Get("X-Amz-Content-Sha256"))
	auth := req.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AKID/20240301/us-east-1/execute-api/aws4_request"))
	assert.Contains(t, auth, "SignedHeaders=host;x-amz-content-sha256;x-amz-date")

	// signing is deterministic for a fixed clock
	again, _ := http.NewRequestWithContext(context.Background(), "GET", "https://example.test/items?a=x~y&b=2", nil)
	signer.Sign(again, nil, now)
	assert.Equal(t, auth, again.Header.Get("Authorization"))
}

func TestCreateCanonicalQueryString(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://x/?b=2&a=hello world&a=1&c=x~y", nil)
	assert.Equal(t, "a=1&a=hello%20world&b=2&c=x~y", createCanonicalQueryString(req.URL.Query()))
}

func TestPerform_AWSSigV4(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	_, err := perform(t, server.URL, func(s *Settings) {
		s.UserPwd = "AKID:SECRET"
		s.AWSSigV4 = "aws:amz:us-east-1:s3"
	})
	require.NoError(t, err)
	assert.Contains(t, got.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AKID/")
	assert.NotEmpty(t, got.Get("X-Amz-Date"))

	_, err = perform(t, server.URL, func(s *Settings) {
		s.AWSSigV4 = "aws:amz:us-east-1:s3"
	})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeBadFunctionArgument, te.Code)
}
