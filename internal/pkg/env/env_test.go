package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv_Precedence(t *testing.T) {
	prev := Env
	t.Cleanup(func() { Env = prev })

	t.Setenv("RECIPEFOX_TEST_KEY", "from-os")
	Env = map[string]string{}
	assert.Equal(t, "from-os", GetEnv("RECIPEFOX_TEST_KEY", "def"))

	Env = map[string]string{"RECIPEFOX_TEST_KEY": "from-file"}
	assert.Equal(t, "from-file", GetEnv("RECIPEFOX_TEST_KEY", "def"))

	assert.Equal(t, "def", GetEnv("RECIPEFOX_TEST_MISSING", "def"))
}

func TestGetList(t *testing.T) {
	prev := Env
	t.Cleanup(func() { Env = prev })

	Env = map[string]string{"KAFKA_BROKERS": " kafka-1:9092, ,kafka-2:9092 "}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, GetList("KAFKA_BROKERS"))

	Env = map[string]string{}
	assert.Nil(t, GetList("KAFKA_BROKERS_UNSET_FOR_TEST"))
}
