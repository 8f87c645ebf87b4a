package export

import "errors"

var ErrNotConfigured = errors.New("export bucket is not configured")

func IsErrNotConfigured(err error) bool { return errors.Is(err, ErrNotConfigured) }
