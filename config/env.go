package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/hbmnoc/sim"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "HBMNOC_"

type envSetter func(c *Config, v string) error

func intSetter(field func(c *Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		*field(c) = n

		return nil
	}
}

func uint64Setter(field func(c *Config) *uint64) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return err
		}

		*field(c) = n

		return nil
	}
}

func uint32Setter(field func(c *Config) *uint32) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return err
		}

		*field(c) = uint32(n)

		return nil
	}
}

func stringSetter(field func(c *Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = strings.ToLower(strings.TrimSpace(v))
		return nil
	}
}

var envSetters = map[string]envSetter{
	"MESH_WIDTH":   intSetter(func(c *Config) *int { return &c.MeshWidth }),
	"MESH_HEIGHT":  intSetter(func(c *Config) *int { return &c.MeshHeight }),
	"FLIT_SIZE":    intSetter(func(c *Config) *int { return &c.FlitSize }),
	"BUFFER_DEPTH": intSetter(func(c *Config) *int { return &c.BufferDepth }),
	"EGRESS_DEPTH": intSetter(func(c *Config) *int { return &c.EgressDepth }),
	"NUM_VCS":      intSetter(func(c *Config) *int { return &c.NumVCs }),
	"ROUTING":      stringSetter(func(c *Config) *string { return &c.RoutingAlgorithm }),
	"SELECTION":    stringSetter(func(c *Config) *string { return &c.SelectionStrategy }),
	"RESERVATION_CADENCE": intSetter(
		func(c *Config) *int { return &c.ReservationCadence }),
	"HBM_CHANNELS":   intSetter(func(c *Config) *int { return &c.HBMChannels }),
	"HBM_INTERLEAVE": uint64Setter(func(c *Config) *uint64 { return &c.HBMInterleave }),
	"HBM_SIZE":       uint64Setter(func(c *Config) *uint64 { return &c.HBMSize }),
	"NIU_QUEUE_DEPTH": intSetter(
		func(c *Config) *int { return &c.NIUQueueDepth }),
	"CYCLE_LIMIT": uint64Setter(func(c *Config) *uint64 { return &c.CycleLimit }),
	"TRAFFIC":     stringSetter(func(c *Config) *string { return &c.TrafficPattern }),
	"NUM_TRANSACTIONS": intSetter(
		func(c *Config) *int { return &c.NumTransactions }),
	"MIN_TXN_LEN": uint32Setter(func(c *Config) *uint32 { return &c.MinTxnLen }),
	"MAX_TXN_LEN": uint32Setter(func(c *Config) *uint32 { return &c.MaxTxnLen }),
	"SEED": func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return err
		}

		c.Seed = n

		return nil
	},
	"FREQ_GHZ": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}

		c.Freq = sim.Freq(f) * sim.GHz

		return nil
	},
	"INJECTION_RATE": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}

		c.InjectionRate = f

		return nil
	},
	"HOTSPOTS": func(c *Config, v string) error {
		c.Hotspots = nil

		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}

			n, err := strconv.Atoi(field)
			if err != nil {
				return err
			}

			c.Hotspots = append(c.Hotspots, n)
		}

		return nil
	},
}

// LoadEnv starts from base and applies HBMNOC_* overrides. Values are taken
// from the dotenv file at path (skipped when path is empty) and then from the
// process environment, which wins.
func LoadEnv(base Config, path string) (Config, error) {
	values := map[string]string{}

	if path != "" {
		fileValues, err := godotenv.Read(path)
		if err != nil {
			return base, fmt.Errorf("reading %s: %w", path, err)
		}

		values = fileValues
	}

	for key := range envSetters {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			values[EnvPrefix+key] = v
		}
	}

	c := base
	c.Hotspots = append([]int(nil), base.Hotspots...)

	for key, v := range values {
		name, found := strings.CutPrefix(key, EnvPrefix)
		if !found {
			continue
		}

		setter, ok := envSetters[name]
		if !ok {
			return base, fmt.Errorf("%w: unknown variable %s", ErrInvalidConfig, key)
		}

		if err := setter(&c, v); err != nil {
			return base, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, err)
		}
	}

	return c, nil
}
