/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("loud"))
}

func TestNewLoggerIsRegistered(t *testing.T) {
	a := NewLogger("TEST_REGISTRY")
	assert.Same(t, a, NewLogger("TEST_REGISTRY"))

	assert.True(t, SetLoggerLevel("TEST_REGISTRY", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("TEST_UNKNOWN", "error"))
}

func TestNamedTextFormatter(t *testing.T) {
	f := &NamedTextFormatter{LoggerName: "DATABASE"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"host": "db", "dbname": "app"},
	}
	out, err := f.Format(entry)
	assert.NoError(t, err)
	assert.Equal(t, "2025-01-02 03:04:05.000    INFO [DATABASE] connected dbname=app host=db\n", string(out))
}

func TestJSONLoggerCarriesName(t *testing.T) {
	var buf bytes.Buffer
	ConfigureConsoleLogFormat("json")
	t.Cleanup(func() { ConfigureConsoleLogFormat("text") })

	l := NewLogger("TEST_JSON")
	l.SetOutput(&buf)
	l.Info("hello")
	assert.True(t, strings.Contains(buf.String(), `"logger":"TEST_JSON"`), buf.String())
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_STRING", "value")
	t.Setenv("UTILS_TEST_BOOL", "yes")
	t.Setenv("UTILS_TEST_BAD_BOOL", "perhaps")

	assert.Equal(t, "value", EnvDefaultString("UTILS_TEST_STRING", "def"))
	assert.Equal(t, "def", EnvDefaultString("UTILS_TEST_MISSING", "def"))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BAD_BOOL", true))
	assert.False(t, EnvDefaultBool("UTILS_TEST_MISSING", false))
}
