package problem

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"verifyproblem/internal/runner"
)

// printable is the ASCII alphabet the random sanity input draws from:
// digits, letters, punctuation and whitespace.
const printable = "0123456789abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~" +
	" \t\n\r\x0b\x0c"

const randomInputSize = 200

func generateRandomInput() []byte {
	buf := make([]byte, randomInputSize)
	for i := range buf {
		buf[i] = printable[rand.Intn(len(printable))]
	}
	return buf
}

// InputFormatValidators holds the input format validator programs. Besides
// validating every test input (exit 42 means accept), each validator is run
// once per distinct flag set against a random input to catch validators that
// accept anything.
type InputFormatValidators struct {
	aspect
	problem     *Problem
	validators  []runner.Program
	seenFlags   map[string]bool
	randomInput string
}

func newInputFormatValidators(p *Problem) *InputFormatValidators {
	v := &InputFormatValidators{
		aspect:    newAspect(p.rep, "input format validators"),
		problem:   p,
		seenFlags: map[string]bool{},
	}
	v.validators = getPrograms(filepath.Join(p.probdir, "input_format_validators"), nil, "", &v.aspect)

	f, err := os.CreateTemp("", "random-input")
	if err != nil {
		v.error("could not create random input file: %v", err)
		return v
	}
	defer f.Close()
	v.randomInput = f.Name()
	if _, err := f.Write(generateRandomInput()); err != nil {
		v.error("could not write random input file: %v", err)
	}
	return v
}

// close removes the scratch random-input file.
func (v *InputFormatValidators) close() {
	if v.randomInput != "" {
		os.Remove(v.randomInput)
		v.randomInput = ""
	}
}

func (v *InputFormatValidators) check() bool {
	if done, res := v.beginCheck(); done {
		return res
	}
	if len(v.validators) == 0 {
		v.error("No input format validators found")
	}
	for _, val := range v.validators {
		if !val.Compile() {
			v.error("Compile error for input format validator %s", val.Name())
		}
	}
	return v.checkResult()
}

// validate runs every validator against the test case input with the group's
// flags. The first time a flag set is seen, each validator is also probed
// with the random input; accepting it earns the group a warning.
func (v *InputFormatValidators) validate(tc *TestCase) {
	flags := strings.Fields(tc.group.configString("input_validator_flags"))
	key := strings.Join(flags, " ")
	shouldTest := !v.seenFlags[key]
	v.seenFlags[key] = true

	for _, val := range v.validators {
		if !val.Compile() {
			continue
		}
		if shouldTest {
			status, _ := val.Run(runner.RunSpec{Stdin: v.randomInput, Args: flags})
			if status.Exited && status.ExitCode == 42 {
				tc.group.warning("The validator flags of %s and validator %s does not reject random input",
					tc.group.id, val.Name())
			}
		}
		status, _ := val.Run(runner.RunSpec{Stdin: tc.infile, Args: flags})
		if !status.Exited {
			tc.error("Input format validator %s crashed on input %s", val.Name(), tc.infile)
		}
		if !status.Exited || status.ExitCode != 42 {
			tc.error("Input format validator %s did not accept input %s, exit code: %d",
				val.Name(), tc.infile, status.ExitCode)
		}
	}
}
