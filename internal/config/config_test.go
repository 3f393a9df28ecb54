package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "LISTEN_ADDR", "JWT_SECRET", "S3_BUCKET", "S3_ENDPOINT",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "YARD_TIMEZONE", "YARDS", "RUN_MIGRATIONS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "yard.movements", cfg.KafkaTopic)
	assert.Equal(t, "America/Edmonton", cfg.Timezone)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092,")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := LoadFromEnv()
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.RunMigrations)
}

func TestParseYards(t *testing.T) {
	t.Run("empty spec yields the default yard", func(t *testing.T) {
		out, err := ParseYards("")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "MAIN", out[0].ID)
		assert.Equal(t, 50, out[0].Capacity)
	})

	t.Run("multi-yard spec", func(t *testing.T) {
		out, err := ParseYards("Y1:North Yard:40, Y2:South Yard:25")
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "Y1", out[0].ID)
		assert.Equal(t, "North Yard", out[0].Name)
		assert.Equal(t, 40, out[0].Capacity)
		assert.Equal(t, 25, out[1].Capacity)
	})

	t.Run("malformed entry", func(t *testing.T) {
		_, err := ParseYards("Y1:North Yard")
		assert.Error(t, err)
	})

	t.Run("bad capacity", func(t *testing.T) {
		_, err := ParseYards("Y1:North Yard:lots")
		assert.Error(t, err)
	})
}
