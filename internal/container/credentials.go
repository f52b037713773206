package container

import (
	"os"

	"github.com/awnumar/memguard"
	"github.com/para-dev/para/internal/common/config"
)

// ForwardedEnv builds the KEY=VALUE env entries for the configured set of
// API-key-style variables (§4.5.2). Each value is read into a locked
// memguard buffer and kept there until the caller is done with the env
// slice: the returned wipe func must be called once the Docker API call
// that consumes env has returned, which is the real point of use. Calling
// wipe any earlier would destroy the buffer before Create ever reads it;
// never calling it leaves every credential parked in locked memory for the
// life of the process.
func ForwardedEnv(cfg config.ContainerConfig) (env []string, wipe func()) {
	if !cfg.ForwardCredentials {
		return nil, func() {}
	}
	var bufs []*memguard.LockedBuffer
	for _, key := range cfg.ForwardedEnvVars {
		val, ok := os.LookupEnv(key)
		if !ok || val == "" {
			continue
		}
		buf := memguard.NewBufferFromBytes([]byte(val))
		bufs = append(bufs, buf)
		env = append(env, key+"="+string(buf.Bytes()))
	}
	return env, func() {
		for _, buf := range bufs {
			buf.Destroy()
		}
	}
}
