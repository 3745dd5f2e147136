package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scoutbase/mailintake/backoff"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want backoff.ErrorClass
	}{
		{errors.New("LOGIN failed"), backoff.ClassAuthentication},
		{errors.New("[AUTHENTICATIONFAILED] Invalid credentials (Failure)"), backoff.ClassAuthentication},
		{errors.New("Bad username or password"), backoff.ClassAuthentication},
		{errors.New("[UNAVAILABLE] Too many simultaneous connections"), backoff.ClassTooManyConnections},
		{errors.New("Maximum number of connections from user+IP exceeded"), backoff.ClassTooManyConnections},
		{errors.New("read tcp 10.0.0.1:993: connection reset by peer"), backoff.ClassTransient},
		{errors.New("i/o timeout"), backoff.ClassTransient},
		{nil, backoff.ClassTransient},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
}
