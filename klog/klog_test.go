package klog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
)

func TestSetLoggerAndL(t *testing.T) {
	var buf bytes.Buffer
	l := stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField("")))

	original := L()
	defer SetLogger(original)

	SetLogger(l)
	L().Info().Str("core", "0").Log("scheduler started")

	assert.True(t, strings.Contains(buf.String(), "scheduler started"))
	assert.True(t, strings.Contains(buf.String(), `"core":"0"`))
}
