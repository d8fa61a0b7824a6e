package tail

import (
	"archive/zip"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Marshal encodes packets as a JSON array of base64 strings, the format crash reports carry
// their last packets in.
func Marshal(packets [][]byte) ([]byte, error) {
	encoded := make([]string, len(packets))

	for i, packet := range packets {
		encoded[i] = base64.StdEncoding.EncodeToString(packet)
	}

	return json.Marshal(encoded)
}

// Unmarshal decodes a JSON array of base64 strings.
func Unmarshal(data []byte) ([][]byte, error) {
	var encoded []string

	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, errors.Wrap(err, "tail: decoding packet list")
	}

	packets := make([][]byte, len(encoded))

	for i, s := range encoded {
		packet, err := base64.StdEncoding.DecodeString(s)

		if err != nil {
			return nil, errors.Wrapf(err, "tail: decoding packet %d", i)
		}

		packets[i] = packet
	}

	return packets, nil
}

// LastPacketsFile is the name of the packet list inside a diagnostics bundle.
const LastPacketsFile = "last_packets.json"

// WriteBundle writes a zip diagnostics bundle holding the packet list and every entry of extra
// as an indented JSON file.
func WriteBundle(w io.Writer, packets [][]byte, extra map[string]interface{}) (err error) {
	z := zip.NewWriter(w)
	defer func() {
		closeErr := z.Close()

		if err == nil {
			err = closeErr
		}
	}()

	encoded, err := Marshal(packets)

	if err != nil {
		return err
	}

	f, err := z.CreateHeader(&zip.FileHeader{
		Name:     LastPacketsFile,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})

	if err != nil {
		return err
	}

	if _, err := f.Write(encoded); err != nil {
		return err
	}

	for filename, data := range extra {
		if err := addJSONFileToZip(z, filename, data); err != nil {
			return err
		}
	}

	return nil
}

func addJSONFileToZip(z *zip.Writer, filename string, data interface{}) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(data)
}
