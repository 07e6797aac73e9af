// Package cookies loads Netscape cookies.txt files for the direct retrieval
// path. The same file path is handed unmodified to the subprocess path.
package cookies

import (
	"bufio"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ParseNetscape parses the Netscape cookies.txt format:
// domain flag path secure expiration name value
func ParseNetscape(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		expiresUnix, _ := strconv.ParseInt(parts[4], 10, 64)
		cookies = append(cookies, &http.Cookie{
			Domain:  parts[0],
			Path:    parts[2],
			Secure:  strings.EqualFold(parts[3], "TRUE"),
			Expires: time.Unix(expiresUnix, 0),
			Name:    parts[5],
			Value:   parts[6],
		})
	}

	return cookies, scanner.Err()
}

// LoadFile reads and parses a cookies.txt file.
func LoadFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseNetscape(f)
}

// NewJar builds a cookie jar seeded from a cookies.txt file, grouping the
// entries by their cookie domain.
func NewJar(path string) (http.CookieJar, error) {
	parsed, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	byDomain := make(map[string][]*http.Cookie)
	for _, c := range parsed {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			continue
		}
		byDomain[domain] = append(byDomain[domain], c)
	}
	for domain, group := range byDomain {
		jar.SetCookies(&url.URL{Scheme: "https", Host: domain}, group)
	}
	return jar, nil
}
