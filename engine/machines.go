package engine

import "github.com/chriskillpack/modplayer/machine"

// BuildMachine resolves a Node's MachineName into a concrete machine.Machine
// instance. Unrecognized names fall back to Passthrough, matching spec
// §4.9's "PassthroughMachine wraps unrecognized foreign plug-in names
// without changing audio" (the same policy a BMX loader would need for a
// machine name it doesn't recognize).
func BuildMachine(name string) machine.Machine {
	switch name {
	case "lowpass", "amiga_lpf":
		return &machine.Lowpass{}
	case "reverb":
		return machine.NewReverb(0.5, 0.2, 0.35)
	default:
		return &machine.Passthrough{}
	}
}
