package ide

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rileyhilliard/cloudctl/internal/errors"
)

// ShareCode returns the IDE's share code from path. A missing file, an empty
// one or regenerate writes a fresh code first.
func ShareCode(path string, regenerate bool) (string, error) {
	if !regenerate {
		data, err := os.ReadFile(path)
		if err == nil {
			if code := strings.TrimSpace(string(data)); code != "" {
				return code, nil
			}
		} else if !os.IsNotExist(err) {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't read the IDE share code from "+path, "")
		}
	}

	code := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create the directory for "+path, "")
	}
	if err := os.WriteFile(path, []byte(code+"\n"), 0600); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write the IDE share code to "+path, "")
	}
	return code, nil
}

// ShareURL is ideURL carrying the share code as its "share" query parameter.
func ShareURL(ideURL, code string) (string, error) {
	u, err := url.Parse(ideURL)
	if err != nil || u.Host == "" {
		return "", errors.New(errors.ErrAPI, "The platform returned an invalid IDE URL: "+ideURL, "")
	}
	q := u.Query()
	q.Set("share", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
