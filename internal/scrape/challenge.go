package scrape

import (
	"bytes"
	"net/http"
	"slices"
	"strings"
)

// challenge describes how one bot-protection vendor's block or challenge
// page looks. It matches when the status is listed and any of the server
// hint, a header, or a complete marker group is present.
type challenge struct {
	vendor   string
	statuses []int
	server   string
	headers  []string
	markers  [][]string
}

var challenges = []challenge{
	{
		vendor:   "Cloudflare",
		statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		server:   "cloudflare",
		markers: [][]string{
			{"cf-browser-verification"},
			{"cloudflare-nginx"},
			{"cf-turnstile"},
			{"Attention Required! | Cloudflare"},
		},
	},
	{
		vendor:   "Akamai",
		statuses: []int{http.StatusForbidden},
		server:   "akamai",
		markers:  [][]string{{"Reference #", "Access Denied"}},
	},
	{
		vendor:   "DataDome",
		statuses: []int{http.StatusForbidden},
		server:   "datadome",
		headers:  []string{"X-DataDome", "X-DataDome-Response"},
		markers:  [][]string{{"geo.captcha-delivery.com"}, {"datadome"}},
	},
	{
		vendor:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		markers:  [][]string{{"client.perimeterx.net"}, {"px-captcha"}, {"_pxBlock"}},
	},
}

// detectChallenge reports which vendor, if any, served a challenge page.
func detectChallenge(status int, header http.Header, body []byte) (string, bool) {
	for _, c := range challenges {
		if c.matches(status, header, body) {
			return c.vendor, true
		}
	}
	return "", false
}

func (c challenge) matches(status int, header http.Header, body []byte) bool {
	if !slices.Contains(c.statuses, status) {
		return false
	}
	if c.server != "" && strings.Contains(strings.ToLower(header.Get("Server")), c.server) {
		return true
	}
	for _, h := range c.headers {
		if header.Get(h) != "" {
			return true
		}
	}
	for _, group := range c.markers {
		if containsAll(body, group) {
			return true
		}
	}
	return false
}

func containsAll(body []byte, markers []string) bool {
	for _, m := range markers {
		if !bytes.Contains(body, []byte(m)) {
			return false
		}
	}
	return len(markers) > 0
}
