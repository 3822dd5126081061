package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wmbusgo/wmbusdecode/internal/meterconfig"
	"github.com/wmbusgo/wmbusdecode/internal/session"
)

var (
	decodeKey    string
	decodeDriver string
	decodeFormat string
	decodeNoSave bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [telegram-hex]",
	Short: "Decode one or more wM-Bus/M-Bus telegrams",
	Long: `Decode a telegram given as a hex string and print its JSON reading.

With a positional argument, decode exactly that telegram and exit. Without
one, decode reads lines from stdin until EOF: each line is either a bare hex
telegram (using the --key/--driver/--format flags for every line) or a JSON
decode request object of the form

	{"_":"decode","telegram":"<HEX>","key":"<HEX>","driver":"<name>|auto","format":"wmbus|mbus|"}

Known meter keys and driver overrides are written to the local meter
registry (an XDG-style config file under the user's config directory) once
the run has finished decoding, unless --no-save-registry is given.`,
	Example: `  # Decode a single telegram
  wmbusdecode decode 19440186313737370408A0A1000059001C270100322DE413B415

  # Decode an encrypted telegram with an explicit key
  wmbusdecode decode --key 00112233445566778899AABBCCDDEEFF <hex>

  # Decode a stream of telegrams from rtl_wmbus
  rtl_wmbus | wmbusdecode decode`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeKey, "key", "", "AES decryption key, hex-encoded (empty or NOKEY for none)")
	decodeCmd.Flags().StringVar(&decodeDriver, "driver", "auto", "Meter driver name, or \"auto\" to detect")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "", "Link-layer format: wmbus, mbus, or empty to auto-detect")
	decodeCmd.Flags().BoolVar(&decodeNoSave, "no-save-registry", false, "Don't persist meter last-seen times to the local registry")
}

// decodeRequestLine is the JSON wire shape one stdin line may carry.
type decodeRequestLine struct {
	Telegram string `json:"telegram"`
	Key      string `json:"key"`
	Driver   string `json:"driver"`
	Format   string `json:"format"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	sess := session.New()

	reg, err := meterconfig.GetGlobalRegistry()
	if err != nil {
		reg = meterconfig.NewRegistry()
	}

	if len(args) == 1 {
		req := session.Request{TelegramHex: args[0], KeyHex: decodeKey, Driver: decodeDriver, Format: decodeFormat}
		decodeOne(sess, reg, req)
		return saveRegistryIfNeeded(reg)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		req := parseDecodeLine(line)
		decodeOne(sess, reg, req)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return saveRegistryIfNeeded(reg)
}

// parseDecodeLine interprets one stdin line as either a JSON decode request
// or a bare hex telegram, falling back to the command's flags for anything
// the line doesn't specify.
func parseDecodeLine(line string) session.Request {
	if strings.HasPrefix(line, "{") {
		var dr decodeRequestLine
		if err := json.Unmarshal([]byte(line), &dr); err == nil {
			req := session.Request{TelegramHex: dr.Telegram, KeyHex: dr.Key, Driver: dr.Driver, Format: dr.Format}
			if req.Driver == "" {
				req.Driver = decodeDriver
			}
			if req.KeyHex == "" {
				req.KeyHex = decodeKey
			}
			if req.Format == "" {
				req.Format = decodeFormat
			}
			return req
		}
	}
	return session.Request{TelegramHex: line, KeyHex: decodeKey, Driver: decodeDriver, Format: decodeFormat}
}

func decodeOne(sess *session.DecoderSession, reg *meterconfig.Registry, req session.Request) {
	respJSON := sess.Decode(req)
	fmt.Println(respJSON)

	var resp map[string]any
	if err := json.Unmarshal([]byte(respJSON), &resp); err != nil {
		return
	}
	id, ok := resp["id"].(string)
	if !ok || id == "" {
		return
	}
	reg.UpdateMeterLastSeen(id, "cli")
	if req.KeyHex != "" {
		reg.SetMeterKey(id, req.KeyHex)
	}
	if req.Driver != "" && req.Driver != "auto" {
		reg.SetMeterDriver(id, req.Driver)
	}
}

func saveRegistryIfNeeded(reg *meterconfig.Registry) error {
	if decodeNoSave {
		return nil
	}
	if err := reg.Save(); err != nil {
		return fmt.Errorf("saving meter registry: %w", err)
	}
	return nil
}
