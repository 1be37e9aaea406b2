package e2etest

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/myrjola/phq9bot/internal/errors"
)

type unsafeCookieJar struct {
	jar *cookiejar.Jar
}

// NewUnsafeCookieJar returns a [http.CookieJar] that ignores the Secure flag so that the server's cookies are sent
// over plain HTTP in tests.
func NewUnsafeCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}

	return &unsafeCookieJar{jar: jar}, nil
}

func (j *unsafeCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		cookie.Secure = false
	}
	j.jar.SetCookies(u, cookies)
}

func (j *unsafeCookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}
