package storage

import (
	"net/url"
	"strings"

	"github.com/matzehuels/tilestyle/pkg/errors"
)

const (
	mapboxScheme  = "mapbox://"
	mapboxBaseURL = "https://api.mapbox.com"
)

// IsMapboxURL reports whether rawURL uses the mapbox:// scheme and therefore
// needs an access token.
func IsMapboxURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, mapboxScheme)
}

// NormalizeMapboxURL rewrites a mapbox:// URL to its HTTPS API endpoint and
// appends the access token. Other URLs are returned unchanged.
//
//	mapbox://styles/{user}/{style}                 -> /styles/v1/{user}/{style}
//	mapbox://fonts/{user}/{fontstack}/{range}.pbf  -> /fonts/v1/{user}/{fontstack}/{range}.pbf
//	mapbox://sprites/{user}/{style}{@2x}.{ext}     -> /styles/v1/{user}/{style}/sprite{@2x}.{ext}
//	mapbox://tiles/{mapid}/{z}/{x}/{y}.{ext}       -> /v4/{mapid}/{z}/{x}/{y}.{ext}
//	mapbox://{mapid}                               -> /v4/{mapid}.json?secure
func NormalizeMapboxURL(rawURL, accessToken string) (string, error) {
	if !IsMapboxURL(rawURL) {
		return rawURL, nil
	}
	if accessToken == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "an access token is required for %s", rawURL)
	}

	rest := strings.TrimPrefix(rawURL, mapboxScheme)
	rest, query, _ := strings.Cut(rest, "?")
	kind, path, _ := strings.Cut(rest, "/")

	var out string
	switch kind {
	case "styles":
		out = mapboxBaseURL + "/styles/v1/" + path
	case "fonts":
		out = mapboxBaseURL + "/fonts/v1/" + path
	case "sprites":
		user, file, ok := strings.Cut(path, "/")
		if !ok {
			return "", errors.New(errors.ErrCodeInvalidInput, "malformed sprite URL %s", rawURL)
		}
		style, suffix := splitSpriteFile(file)
		out = mapboxBaseURL + "/styles/v1/" + user + "/" + style + "/sprite" + suffix
	case "tiles":
		out = mapboxBaseURL + "/v4/" + path
	default:
		out = mapboxBaseURL + "/v4/" + rest + ".json"
		query = joinQuery(query, "secure")
	}

	return out + "?" + joinQuery(query, "access_token="+url.QueryEscape(accessToken)), nil
}

// splitSpriteFile separates "bright@2x.png" into "bright" and "@2x.png".
func splitSpriteFile(file string) (string, string) {
	if i := strings.Index(file, "@"); i >= 0 {
		return file[:i], file[i:]
	}
	if i := strings.LastIndex(file, "."); i >= 0 {
		return file[:i], file[i:]
	}
	return file, ""
}

func joinQuery(query, param string) string {
	if query == "" {
		return param
	}
	return query + "&" + param
}
