// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prompt

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/term"
)

const (
	// MinSeedBytes is the shortest hex seed accepted.
	MinSeedBytes = 16

	// MaxSeedBytes is the longest hex seed accepted.
	MaxSeedBytes = 64

	// RecommendedSeedLen is the length of generated seeds.
	RecommendedSeedLen = 32
)

// Prompter asks questions on a terminal.  Passphrases are read without
// echo when the input is a terminal, and as plain lines otherwise.
type Prompter struct {
	reader       *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

// New returns a Prompter reading from in and writing to out.
func New(in *os.File, out io.Writer) *Prompter {
	p := &Prompter{
		reader: bufio.NewReader(in),
		out:    out,
	}

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		p.readPassword = func() ([]byte, error) {
			pass, err := term.ReadPassword(fd)
			fmt.Fprint(out, "\n")
			return pass, err
		}
	} else {
		p.readPassword = p.readLine
	}

	return p
}

// newFromReader returns a Prompter that reads every answer, passphrases
// included, as lines of r.
func newFromReader(r io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		reader: bufio.NewReader(r),
		out:    out,
	}
	p.readPassword = p.readLine

	return p
}

// Reader returns the buffered input of the prompter.  Input read after the
// last prompt has to go through it, since the prompter may have buffered
// part of it already.
func (p *Prompter) Reader() *bufio.Reader {
	return p.reader
}

func (p *Prompter) readLine() ([]byte, error) {
	line, err := p.reader.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, err
	}
	return line, nil
}

// promptList prompts the user with the given prefix, list of valid responses,
// and default list entry to use.  The function will repeat the prompt to the
// user until they enter a valid response.
func (p *Prompter) promptList(prefix string, validResponses []string,
	defaultEntry string) (string, error) {

	validStrings := strings.Join(validResponses, "/")
	var prompt string
	if defaultEntry != "" {
		prompt = fmt.Sprintf("%s (%s) [%s]: ", prefix, validStrings,
			defaultEntry)
	} else {
		prompt = fmt.Sprintf("%s (%s): ", prefix, validStrings)
	}

	for {
		fmt.Fprint(p.out, prompt)
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		reply := strings.TrimSpace(strings.ToLower(string(line)))
		if reply == "" {
			reply = defaultEntry
		}

		for _, validResponse := range validResponses {
			if reply == validResponse {
				return reply, nil
			}
		}
	}
}

// promptListBool prompts the user for a boolean (yes/no) with the given
// prefix.
func (p *Prompter) promptListBool(prefix string,
	defaultEntry string) (bool, error) {

	valid := []string{"n", "no", "y", "yes"}
	response, err := p.promptList(prefix, valid, defaultEntry)
	if err != nil {
		return false, err
	}
	return response == "yes" || response == "y", nil
}

// PassPrompt prompts the user for a passphrase with the given prefix.  When
// confirm is set the passphrase has to be typed twice, and the prompts are
// repeated until both entries match.
func (p *Prompter) PassPrompt(prefix string, confirm bool) ([]byte, error) {
	prompt := fmt.Sprintf("%s: ", prefix)
	for {
		fmt.Fprint(p.out, prompt)
		pass, err := p.readPassword()
		if err != nil {
			return nil, err
		}
		pass = bytes.TrimSpace(pass)
		if len(pass) == 0 {
			continue
		}

		if !confirm {
			return pass, nil
		}

		fmt.Fprint(p.out, "Confirm passphrase: ")
		again, err := p.readPassword()
		if err != nil {
			return nil, err
		}
		again = bytes.TrimSpace(again)
		if !bytes.Equal(pass, again) {
			fmt.Fprintln(p.out, "The entered passphrases do not match")
			continue
		}

		return pass, nil
	}
}

// StoragePass asks whether the wallet storage should be encrypted and, if
// so, for the passphrase.  A nil passphrase means plaintext storage.
func (p *Prompter) StoragePass() ([]byte, error) {
	encrypt, err := p.promptListBool("Do you want to encrypt the wallet "+
		"storage?", "no")
	if err != nil || !encrypt {
		return nil, err
	}

	return p.PassPrompt("Enter the storage passphrase", true)
}

// Secret is the answer to Seed.  Exactly one of Seed and Mnemonic is set.
type Secret struct {
	Seed     []byte
	Mnemonic string
}

// Seed prompts the user whether they want to use an existing secret.  When
// the user answers no, a seed is generated and displayed along with a
// request for confirmation.  When the user answers yes, they are prompted
// for either a hex seed or a mnemonic sentence.
func (p *Prompter) Seed() (*Secret, error) {
	useUserSeed, err := p.promptListBool("Do you have an existing "+
		"wallet seed or mnemonic you want to use?", "no")
	if err != nil {
		return nil, err
	}

	if !useUserSeed {
		seed := make([]byte, RecommendedSeedLen)
		if _, err := rand.Read(seed); err != nil {
			return nil, err
		}

		fmt.Fprintf(p.out, "Your wallet generation seed is:\n%x\n", seed)
		fmt.Fprintln(p.out, "IMPORTANT: Keep the seed in a safe place "+
			"as you\nwill NOT be able to restore your wallet "+
			"without it.")
		fmt.Fprintln(p.out, "Please keep in mind that anyone who has "+
			"access\nto the seed can also restore your wallet "+
			"thereby\ngiving them access to all your funds, so "+
			"it is\nimperative that you keep it in a secure "+
			"location.")

		for {
			fmt.Fprint(p.out, `Once you have stored the seed in a `+
				`safe and secure location, enter "OK" to `+
				`continue: `)
			line, err := p.readLine()
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(string(line)) == "OK" {
				break
			}
		}

		return &Secret{Seed: seed}, nil
	}

	return p.ExistingSecret()
}

// ExistingSecret prompts for a hex seed or a mnemonic sentence until a
// valid one is entered.
func (p *Prompter) ExistingSecret() (*Secret, error) {
	for {
		fmt.Fprint(p.out, "Enter existing wallet seed or mnemonic: ")
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		answer := collapseSpace(strings.TrimSpace(string(line)))
		if answer == "" {
			continue
		}

		// A mnemonic always holds several words.
		if strings.Contains(answer, " ") {
			return &Secret{Mnemonic: answer}, nil
		}

		seed, err := hex.DecodeString(strings.ToLower(answer))
		if err != nil || len(seed) < MinSeedBytes ||
			len(seed) > MaxSeedBytes {

			fmt.Fprintf(p.out, "Invalid seed specified.  Must be "+
				"a mnemonic sentence or a hexadecimal value "+
				"that is at least %d bits and at most %d bits\n",
				MinSeedBytes*8, MaxSeedBytes*8)
			continue
		}

		return &Secret{Seed: seed}, nil
	}
}

// Setup prompts for all the values needed to create a new wallet: the
// storage passphrase and the wallet secret.
func (p *Prompter) Setup() ([]byte, *Secret, error) {
	storagePass, err := p.StoragePass()
	if err != nil {
		return nil, nil, err
	}

	secret, err := p.Seed()
	if err != nil {
		return nil, nil, err
	}

	return storagePass, secret, nil
}

// collapseSpace takes a string and replaces any repeated areas of whitespace
// with a single space character.
func collapseSpace(in string) string {
	whiteSpace := false
	out := ""
	for _, c := range in {
		if unicode.IsSpace(c) {
			if !whiteSpace {
				out = out + " "
			}
			whiteSpace = true
		} else {
			out = out + string(c)
			whiteSpace = false
		}
	}
	return out
}
