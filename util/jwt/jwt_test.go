package jwt_test

import (
	"testing"
	"time"

	"schoollibrary/util/jwt"

	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := jwt.Issue("s3cret", "student-7", "student", time.Hour)
	require.NoError(t, err)

	claims, err := jwt.ParseAuth("Bearer "+tok, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "student-7", claims.Subject)
	require.Equal(t, "student", claims.Role)

	claims, err = jwt.ParseAuth(tok, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "student-7", claims.Subject)
}

func TestParseAuth_Rejects(t *testing.T) {
	tok, err := jwt.Issue("s3cret", "u1", "staff", time.Hour)
	require.NoError(t, err)
	expired, err := jwt.Issue("s3cret", "u1", "staff", -time.Minute)
	require.NoError(t, err)

	_, err = jwt.ParseAuth("", "s3cret")
	require.Error(t, err)
	_, err = jwt.ParseAuth("Bearer "+tok, "other")
	require.Error(t, err)
	_, err = jwt.ParseAuth("Bearer "+expired, "s3cret")
	require.Error(t, err)

	_, err = jwt.Issue("s3cret", "", "staff", time.Hour)
	require.Error(t, err)
}
