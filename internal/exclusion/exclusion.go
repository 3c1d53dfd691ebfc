// Package exclusion holds the static data that fences the engine off from
// useless provider spend: free-email domains that never identify a company,
// and IP ranges belonging to crawlers or private networks that can never be
// revealed. Both sets sit in front of the fetch path; an excluded domain or
// IP must never reach the provider client.
package exclusion

import "net/netip"

// FreeEmailDomains lists consumer mailbox providers. Prospecting or
// discovering one of these would target the mail provider itself rather than
// the visitor's employer.
var FreeEmailDomains = map[string]struct{}{
	// Default domains included
	"aol.com": {}, "att.net": {}, "comcast.net": {}, "facebook.com": {},
	"gmail.com": {}, "gmx.com": {}, "googlemail.com": {}, "google.com": {},
	"hotmail.com": {}, "hotmail.co.uk": {}, "mac.com": {}, "me.com": {},
	"mail.com": {}, "msn.com": {}, "live.com": {}, "sbcglobal.net": {},
	"verizon.net": {}, "yahoo.com": {}, "yahoo.co.uk": {},

	// Other global domains
	"email.com": {}, "games.com": {}, "gmx.net": {}, "hush.com": {},
	"hushmail.com": {}, "icloud.com": {}, "inbox.com": {}, "lavabit.com": {},
	"love.com": {}, "outlook.com": {}, "pobox.com": {}, "rocketmail.com": {},
	"safe-mail.net": {}, "wow.com": {}, "ygm.com": {}, "ymail.com": {},
	"zoho.com": {}, "fastmail.fm": {}, "yandex.com": {},

	// United States ISP domains
	"bellsouth.net": {}, "charter.net": {}, "cox.net": {}, "earthlink.net": {},
	"juno.com": {},

	// British ISP domains
	"btinternet.com": {}, "virginmedia.com": {}, "blueyonder.co.uk": {},
	"freeserve.co.uk": {}, "live.co.uk": {}, "ntlworld.com": {},
	"o2.co.uk": {}, "orange.net": {}, "sky.com": {}, "talktalk.co.uk": {},
	"tiscali.co.uk": {}, "virgin.net": {}, "wanadoo.co.uk": {}, "bt.com": {},

	// Domains used in Asia
	"sina.com": {}, "qq.com": {}, "naver.com": {}, "hanmail.net": {},
	"daum.net": {}, "nate.com": {}, "yahoo.co.jp": {}, "yahoo.co.kr": {},
	"yahoo.co.id": {}, "yahoo.co.in": {}, "yahoo.com.sg": {}, "yahoo.com.ph": {},

	// French ISP domains
	"hotmail.fr": {}, "live.fr": {}, "laposte.net": {}, "yahoo.fr": {},
	"wanadoo.fr": {}, "orange.fr": {}, "gmx.fr": {}, "sfr.fr": {},
	"neuf.fr": {}, "free.fr": {},

	// German ISP domains
	"gmx.de": {}, "hotmail.de": {}, "live.de": {}, "online.de": {},
	"t-online.de": {}, "web.de": {}, "yahoo.de": {},

	// Russian ISP domains
	"mail.ru": {}, "rambler.ru": {}, "yandex.ru": {}, "ya.ru": {}, "list.ru": {},

	// Belgian ISP domains
	"hotmail.be": {}, "live.be": {}, "skynet.be": {}, "voo.be": {},
	"tvcablenet.be": {}, "telenet.be": {},

	// Argentinian ISP domains
	"hotmail.com.ar": {}, "live.com.ar": {}, "yahoo.com.ar": {},
	"fibertel.com.ar": {}, "speedy.com.ar": {}, "arnet.com.ar": {},

	// Domains used in Mexico
	"yahoo.com.mx": {}, "live.com.mx": {}, "hotmail.es": {},
	"hotmail.com.mx": {}, "prodigy.net.mx": {},
}

// excludedRanges are CIDR blocks whose addresses are never worth a reveal
// call: search-engine crawlers and private networks.
var excludedRanges = mustParsePrefixes([]string{
	// Google crawlers
	"64.18.0.0/20", "64.233.160.0/19", "66.102.0.0/20", "66.249.80.0/20",
	"72.14.192.0/18", "74.125.0.0/16", "108.177.8.0/21", "172.217.0.0/19",
	"173.194.0.0/16", "207.126.144.0/20", "209.85.128.0/17",
	"216.58.192.0/19", "216.239.32.0/19",

	// Local IPs
	"10.0.0.0/8", "192.168.0.0/16", "172.16.0.0/12",
})

func mustParsePrefixes(raw []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(raw))
	for _, r := range raw {
		prefixes = append(prefixes, netip.MustParsePrefix(r))
	}
	return prefixes
}

// IsFreeEmailDomain reports whether domain belongs to a consumer mail
// provider. The caller is expected to lowercase the domain first (settings
// normalization already does).
func IsFreeEmailDomain(domain string) bool {
	_, ok := FreeEmailDomains[domain]
	return ok
}

// ValidPublicIP reports whether raw is a syntactically valid IP address that
// is worth a reveal lookup. The tracking pixel reports "0" when it cannot
// determine an address, so that sentinel is rejected along with anything in
// the crawler and private ranges.
func ValidPublicIP(raw string) bool {
	if raw == "" || raw == "0" {
		return false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false
	}
	for _, prefix := range excludedRanges {
		if prefix.Contains(addr) {
			return false
		}
	}
	return true
}
