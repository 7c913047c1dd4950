package gcm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from checkin.proto (AndroidCheckinRequest and friends).
const (
	reqID               protowire.Number = 2
	reqCheckin          protowire.Number = 4
	reqLocale           protowire.Number = 6
	reqTimeZone         protowire.Number = 12
	reqSecurityToken    protowire.Number = 13
	reqVersion          protowire.Number = 14
	reqFragment         protowire.Number = 20
	reqUserSerialNumber protowire.Number = 22

	checkinBuild protowire.Number = 1
	checkinType  protowire.Number = 12

	buildFingerprint  protowire.Number = 1
	buildHardware     protowire.Number = 2
	buildBrand        protowire.Number = 3
	buildRadio        protowire.Number = 4
	buildBootloader   protowire.Number = 5
	buildClientID     protowire.Number = 6
	buildTime         protowire.Number = 7
	buildPackageVer   protowire.Number = 8
	buildDevice       protowire.Number = 9
	buildSDKVersion   protowire.Number = 10
	buildModel        protowire.Number = 11
	buildManufacturer protowire.Number = 12
	buildProduct      protowire.Number = 13
	buildOTAInstalled protowire.Number = 14

	respAndroidID     protowire.Number = 7
	respSecurityToken protowire.Number = 8
)

const (
	deviceTypeAndroidOS = 1
	checkinVersion      = 3
)

// Credentials identify a checked-in device to GCM.
type Credentials struct {
	AndroidID     uint64 `json:"androidId"`
	SecurityToken uint64 `json:"securityToken"`
}

// Valid reports whether both halves are set.
func (c Credentials) Valid() bool {
	return c.AndroidID != 0 && c.SecurityToken != 0
}

// checkin performs an Android-native GCM checkin. If prev is valid, this is
// a re-checkin with existing credentials.
func checkin(ctx context.Context, httpClient *http.Client, prev Credentials, device AndroidDeviceInfo) (Credentials, error) {
	body := marshalCheckinRequest(prev, device)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, checkinURL, bytes.NewReader(body))
	if err != nil {
		return Credentials{}, fmt.Errorf("gcm checkin: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Credentials{}, fmt.Errorf("gcm checkin: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credentials{}, fmt.Errorf("gcm checkin: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Credentials{}, &HTTPError{Op: "checkin", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	creds, err := unmarshalCheckinResponse(respBody)
	if err != nil {
		return Credentials{}, fmt.Errorf("gcm checkin: %w", err)
	}
	return creds, nil
}

func marshalCheckinRequest(prev Credentials, device AndroidDeviceInfo) []byte {
	var build []byte
	build = appendString(build, buildFingerprint, device.BuildFingerprint)
	build = appendString(build, buildHardware, device.Hardware)
	build = appendString(build, buildBrand, device.Brand)
	build = appendString(build, buildRadio, device.Radio)
	build = appendString(build, buildBootloader, device.Bootloader)
	build = appendString(build, buildClientID, "android-google")
	build = appendVarint(build, buildTime, uint64(device.BuildTime))
	build = appendVarint(build, buildPackageVer, uint64(device.GMSVersion))
	build = appendString(build, buildDevice, device.Device)
	build = appendVarint(build, buildSDKVersion, uint64(device.SDKVersion))
	build = appendString(build, buildModel, device.Model)
	build = appendString(build, buildManufacturer, device.Manufacturer)
	build = appendString(build, buildProduct, device.Product)
	build = appendVarint(build, buildOTAInstalled, protowire.EncodeBool(false))

	var checkinMsg []byte
	checkinMsg = appendBytes(checkinMsg, checkinBuild, build)
	checkinMsg = appendVarint(checkinMsg, checkinType, deviceTypeAndroidOS)

	var req []byte
	if prev.Valid() {
		req = appendVarint(req, reqID, prev.AndroidID)
	}
	req = appendBytes(req, reqCheckin, checkinMsg)
	req = appendString(req, reqLocale, "en_US")
	req = appendString(req, reqTimeZone, "America/New_York")
	if prev.Valid() {
		req = protowire.AppendTag(req, reqSecurityToken, protowire.Fixed64Type)
		req = protowire.AppendFixed64(req, prev.SecurityToken)
	}
	req = appendVarint(req, reqVersion, checkinVersion)
	req = appendVarint(req, reqFragment, 0)
	req = appendVarint(req, reqUserSerialNumber, 0)
	return req
}

func unmarshalCheckinResponse(b []byte) (Credentials, error) {
	var creds Credentials
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Credentials{}, fmt.Errorf("unmarshal response: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == respAndroidID && typ == protowire.Fixed64Type:
			creds.AndroidID, n = protowire.ConsumeFixed64(b)
		case num == respSecurityToken && typ == protowire.Fixed64Type:
			creds.SecurityToken, n = protowire.ConsumeFixed64(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return Credentials{}, fmt.Errorf("unmarshal response field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if !creds.Valid() {
		return Credentials{}, errors.New("response carries no device credentials")
	}
	return creds, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
