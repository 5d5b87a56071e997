package license

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// FormatVersion is the envelope version written by Encode.
	FormatVersion = 1
	// MinSecretLength is the shortest signing secret NewCodec accepts.
	MinSecretLength = 16

	algoHMACSHA256 = "hmac-sha256"
	keyInfo        = "lickey license signing v1"
)

var b64 = base64.RawURLEncoding.Strict()

// envelope is the on-disk form. The version member is always written first.
type envelope struct {
	V       int    `json:"v"`
	Algo    string `json:"algo"`
	Payload string `json:"payload"`
	Sig     string `json:"sig"`
}

type payloadRecord struct {
	Vendor      string          `json:"vendor"`
	Application string          `json:"application"`
	HardwareKey string          `json:"hardware_key"`
	Features    []featureRecord `json:"features"`
}

type featureRecord struct {
	Name    string  `json:"name"`
	Version *uint32 `json:"version,omitempty"`
	Issued  string  `json:"issued"`
	Expires string  `json:"expires"`
	Count   uint32  `json:"count"`
}

// Document is the decoded content of a license file.
type Document struct {
	Vendor      string
	Application string
	HardwareKey HardwareKey
	Features    *FeatureMap
}

// Codec encodes and decodes license files. Every document carries an
// HMAC-SHA256 tag keyed from the provisioned secret, so editing any field
// invalidates the file.
//
// Whoever holds the secret can mint licenses. A verifier that embeds it can
// be reverse engineered, so hardware binding plus this tag deters casual
// copying and editing; it is not a security boundary against a determined
// attacker.
type Codec struct {
	key []byte
}

// NewCodec derives the signing key from secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, newError("new codec", ErrInvalidFormat, "", errors.New("signing secret must be at least 16 bytes"))
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, newError("new codec", ErrInvalidFormat, "", err)
	}
	return &Codec{key: key}, nil
}

// Encode produces the signed file content.
func (c *Codec) Encode(vendor, application string, key HardwareKey, features *FeatureMap) ([]byte, error) {
	vendor, application = strings.TrimSpace(vendor), strings.TrimSpace(application)
	if !validIdentity(vendor, application) {
		return nil, newError("encode license", ErrInvalidFormat, Identity(vendor, application), nil)
	}

	rec := payloadRecord{
		Vendor:      vendor,
		Application: application,
		HardwareKey: key.String(),
		Features:    make([]featureRecord, 0, features.Len()),
	}
	for _, f := range features.Features() {
		fr := featureRecord{
			Name:    f.Name,
			Issued:  f.Issued.String(),
			Expires: f.Expires.String(),
			Count:   f.Count,
		}
		if v, ok := f.Version.Value(); ok {
			fr.Version = &v
		}
		rec.Features = append(rec.Features, fr)
	}

	payload, err := marshalCanonical(rec)
	if err != nil {
		return nil, newError("encode license", ErrCorruptFormat, "", err)
	}
	env := envelope{
		V:       FormatVersion,
		Algo:    algoHMACSHA256,
		Payload: b64.EncodeToString(payload),
		Sig:     b64.EncodeToString(c.sign(payload)),
	}
	out, err := marshalCanonical(env)
	if err != nil {
		return nil, newError("encode license", ErrCorruptFormat, "", err)
	}
	return append(out, '\n'), nil
}

// Decode verifies and parses file content. It fails closed: anything
// unexpected is ErrCorruptFormat, an unknown envelope version or algorithm is
// ErrUnsupportedVersion.
func (c *Codec) Decode(data []byte) (*Document, error) {
	var head struct {
		V int `json:"v"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, newError("decode license", ErrCorruptFormat, "", err)
	}
	switch {
	case head.V == 0:
		return nil, newError("decode license", ErrCorruptFormat, "", errors.New("missing format version"))
	case head.V != FormatVersion:
		return nil, newError("decode license", ErrUnsupportedVersion, "", nil)
	}

	var env envelope
	if err := decodeStrict(data, &env); err != nil {
		return nil, newError("decode license", ErrCorruptFormat, "", err)
	}
	if env.Algo != algoHMACSHA256 {
		return nil, newError("decode license", ErrUnsupportedVersion, env.Algo, nil)
	}
	payload, err := b64.DecodeString(env.Payload)
	if err != nil {
		return nil, newError("decode license", ErrCorruptFormat, "payload", err)
	}
	sig, err := b64.DecodeString(env.Sig)
	if err != nil {
		return nil, newError("decode license", ErrCorruptFormat, "sig", err)
	}
	if !hmac.Equal(sig, c.sign(payload)) {
		return nil, newError("decode license", ErrCorruptFormat, "sig", errors.New("integrity check failed"))
	}

	var rec payloadRecord
	if err := decodeStrict(payload, &rec); err != nil {
		return nil, newError("decode license", ErrCorruptFormat, "payload", err)
	}
	return rec.document()
}

func (rec payloadRecord) document() (*Document, error) {
	if !validIdentity(rec.Vendor, rec.Application) ||
		rec.Vendor != strings.TrimSpace(rec.Vendor) || rec.Application != strings.TrimSpace(rec.Application) {
		return nil, newError("decode license", ErrCorruptFormat, Identity(rec.Vendor, rec.Application), nil)
	}
	key, err := ParseHardwareKey(rec.HardwareKey)
	if err != nil {
		return nil, corruptPayload(rec.HardwareKey, err)
	}
	features := NewFeatureMap()
	for _, fr := range rec.Features {
		if fr.Name != NormalizeFeatureName(fr.Name) {
			return nil, newError("decode license", ErrCorruptFormat, fr.Name, nil)
		}
		issued, err := ParseDate(fr.Issued)
		if err != nil {
			return nil, corruptPayload(fr.Name, err)
		}
		expires, err := ParseDate(fr.Expires)
		if err != nil {
			return nil, corruptPayload(fr.Name, err)
		}
		var version FeatureVersion
		if fr.Version != nil {
			version = NewFeatureVersion(*fr.Version)
		}
		if err := features.Add(fr.Name, version, issued, expires, fr.Count); err != nil {
			return nil, corruptPayload(fr.Name, err)
		}
	}
	return &Document{
		Vendor:      rec.Vendor,
		Application: rec.Application,
		HardwareKey: key,
		Features:    features,
	}, nil
}

// corruptPayload keeps only the message of a field error so that the result
// matches ErrCorruptFormat and not the field's own kind.
func corruptPayload(value string, cause error) *Error {
	return newError("decode license", ErrCorruptFormat, value, errors.New(cause.Error()))
}

func (c *Codec) sign(payload []byte) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write(payload)
	return h.Sum(nil)
}

// marshalCanonical encodes with a fixed member order, no HTML escaping and no
// trailing newline.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after document")
	}
	return nil
}
