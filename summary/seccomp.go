package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	mapset "github.com/deckarep/golang-set"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/tcassar-diss/systrace/syscalltbl"
)

var ErrNoSyscalls = errors.New("no syscalls observed")

var seccompArchs = map[syscalltbl.Machine]specs.Arch{
	syscalltbl.EMX8664:   specs.ArchX86_64,
	syscalltbl.EMAArch64: specs.ArchAARCH64,
}

// Seccomp returns a profile that allows every syscall seen during the trace and fails
// everything else with an errno.
func (r Report) Seccomp(machine syscalltbl.Machine) (specs.LinuxSeccomp, error) {
	arch, ok := seccompArchs[machine]
	if !ok {
		return specs.LinuxSeccomp{}, fmt.Errorf("%w: %s", syscalltbl.ErrUnsupportedMachine, machine)
	}

	names := mapset.NewThreadUnsafeSet()
	for _, name := range r.observed {
		names.Add(name)
	}

	if names.Cardinality() == 0 {
		return specs.LinuxSeccomp{}, ErrNoSyscalls
	}

	allowed := make([]string, 0, names.Cardinality())
	for _, name := range names.ToSlice() {
		allowed = append(allowed, name.(string))
	}

	sort.Strings(allowed)

	return specs.LinuxSeccomp{
		DefaultAction: specs.ActErrno,
		Architectures: []specs.Arch{arch},
		Syscalls: []specs.LinuxSyscall{
			{
				Names:  allowed,
				Action: specs.ActAllow,
			},
		},
	}, nil
}

// WriteSeccomp saves the profile of the traced machine to profilePath.
func (r Report) WriteSeccomp(machine syscalltbl.Machine, profilePath string) error {
	profile, err := r.Seccomp(machine)
	if err != nil {
		return err
	}

	f, err := os.Create(profilePath)
	if err != nil {
		return fmt.Errorf("failed to create seccomp profile: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")

	if err := enc.Encode(profile); err != nil {
		return fmt.Errorf("failed to write seccomp profile: %w", err)
	}

	return nil
}
