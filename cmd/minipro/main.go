// Command minipro is the TL866-family programmer CLI (C8's external
// surface, spec.md §6): list/describe devices, read/write/verify chip
// images and fuse configuration, run the hardware self-test, and apply
// vendor firmware updates.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tl866go/tl866prog/device"
	"github.com/tl866go/tl866prog/firmware"
	"github.com/tl866go/tl866prog/fuseconf"
	"github.com/tl866go/tl866prog/programmer"
	"github.com/tl866go/tl866prog/protocol"
	"github.com/tl866go/tl866prog/transport"
)

const (
	vendorID  = 0x04D8
	productID = 0xE11C
)

const version = "0.1.0"

var (
	listFlag     = flag.Bool("l", false, "list every known device")
	listPrefix   = flag.String("L", "", "list devices whose name starts with PREFIX")
	infoName     = flag.String("d", "", "print the descriptor for NAME and exit")
	idOnly       = flag.Bool("D", false, "print the chip id and exit")
	readFile     = flag.String("r", "", "read the chip into FILE")
	writeFile    = flag.String("w", "", "write the chip from FILE")
	deviceName   = flag.String("p", "", "select device NAME")
	pageFlag     = flag.String("c", "", "restrict to one page: code, data or config")
	noErase      = flag.Bool("e", false, "do not erase before writing")
	noProtectOff = flag.Bool("u", false, "do not disable write protection")
	noProtectOn  = flag.Bool("P", false, "do not re-enable write protection")
	noVerify     = flag.Bool("v", false, "do not verify after writing")
	icspVcc      = flag.Bool("i", false, "use ICSP, supplying Vcc")
	icspNoVcc    = flag.Bool("I", false, "use ICSP, without supplying Vcc")
	sizeWarn     = flag.Bool("s", false, "warn, don't fail, on file size mismatch")
	sizeSilent   = flag.Bool("S", false, "like -s, but without the warning text")
	skipID       = flag.Bool("x", false, "skip the chip-id check")
	continueOnID = flag.Bool("y", false, "continue past a chip-id mismatch")
	showVersion  = flag.Bool("V", false, "print the version and exit")
	selfTest     = flag.Bool("t", false, "run the hardware self-test and exit")
	firmwareFile = flag.String("F", "", "apply a vendor firmware update from FILE")
)

func usage() {
	fmt.Fprintf(os.Stderr, `minipro - TL866-family EPROM/EEPROM/Flash/PIC/AVR/GAL programmer

USAGE:
  minipro -l | -L PREFIX
  minipro -d NAME
  minipro -p NAME -D
  minipro -p NAME -r FILE [flags]
  minipro -p NAME -w FILE [flags]
  minipro -t
  minipro -F FILE

FLAGS:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "minipro:", err)
		os.Exit(1)
	}
}

func run() error {
	switch {
	case *showVersion:
		fmt.Println("minipro", version)
		return nil
	case *listFlag:
		return listDevices("")
	case *listPrefix != "":
		return listDevices(*listPrefix)
	case *infoName != "":
		return printDeviceInfo(*infoName)
	case *firmwareFile != "":
		return runFirmwareUpdate(*firmwareFile)
	}

	db := device.NewDefaultDatabase()
	var desc *device.Descriptor
	if *deviceName != "" {
		d, ok := db.GetByName(*deviceName)
		if !ok {
			return fmt.Errorf("unknown device %q", *deviceName)
		}
		desc = d
	}

	if *selfTest {
		return runSelfTest()
	}

	if desc == nil {
		return fmt.Errorf("no device selected (-p NAME)")
	}

	dev, err := transport.Open(vendorID, productID)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Close()

	icsp := protocol.ICSP(0)
	if *icspVcc {
		icsp |= protocol.ICSPEnable | protocol.ICSPSupplyVcc
	} else if *icspNoVcc {
		icsp |= protocol.ICSPEnable
	}

	engine := protocol.NewEngine(dev, desc, icsp)
	layout := desc.FuseLayout
	orch := programmer.New(engine, desc, layout, device.DefaultChipIDTable(), programmer.NewBarProgress())

	page, err := parsePage(*pageFlag)
	if err != nil {
		return err
	}

	switch {
	case *idOnly:
		if *skipID {
			return fmt.Errorf("-D cannot be combined with -x")
		}
		return printChipID(engine, desc, device.DefaultChipIDTable())
	case *readFile != "":
		return runRead(orch, desc, page, *readFile)
	case *writeFile != "":
		return runWrite(orch, desc, page, *writeFile)
	default:
		usage()
		return fmt.Errorf("no action requested")
	}
}

func parsePage(s string) (programmer.Page, error) {
	switch strings.ToLower(s) {
	case "":
		return programmer.PageUnspecified, nil
	case "code":
		return programmer.PageCode, nil
	case "data":
		return programmer.PageData, nil
	case "config":
		return programmer.PageConfig, nil
	default:
		return 0, fmt.Errorf("unknown page %q (want code, data or config)", s)
	}
}

func sizeMismatchPolicy() programmer.SizeMismatchPolicy {
	switch {
	case *sizeSilent:
		return programmer.SizeMismatchSilent
	case *sizeWarn:
		return programmer.SizeMismatchWarn
	default:
		return programmer.SizeMismatchFatal
	}
}

func runRead(orch *programmer.Orchestrator, desc *device.Descriptor, page programmer.Page, name string) error {
	res, err := orch.Read(programmer.ReadOptions{
		Page:                 page,
		SkipIDCheck:          *skipID,
		ContinueOnIDMismatch: *continueOnID,
	})
	if err != nil {
		return err
	}

	switch page {
	case programmer.PageCode:
		return os.WriteFile(name, res.Code, 0o644)
	case programmer.PageData:
		return os.WriteFile(name, res.Data, 0o644)
	case programmer.PageConfig:
		return writeFusesFile(name, res.Fuses)
	default:
		if err := os.WriteFile(name, res.Code, 0o644); err != nil {
			return err
		}
		if res.Data != nil {
			if err := os.WriteFile(name+".eeprom.bin", res.Data, 0o644); err != nil {
				return err
			}
		}
		if res.Fuses != nil {
			if err := writeFusesFile(name+".fuses.conf", res.Fuses); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeFusesFile(name string, cfg *fuseconf.Config) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return fuseconf.Write(f, cfg)
}

func readFusesFile(name string) (*fuseconf.Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fuseconf.Parse(f)
}

func runWrite(orch *programmer.Orchestrator, desc *device.Descriptor, page programmer.Page, name string) error {
	input := programmer.WriteInput{}

	switch page {
	case programmer.PageCode:
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		input.Code = data
	case programmer.PageData:
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		input.Data = data
	case programmer.PageConfig:
		cfg, err := readFusesFile(name)
		if err != nil {
			return err
		}
		input.Fuses = cfg
	default:
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		input.Code = data
		if desc.DataMemorySize > 0 {
			if data, err := os.ReadFile(name + ".eeprom.bin"); err == nil {
				input.Data = data
			}
		}
		if desc.FuseLayout != nil {
			if cfg, err := readFusesFile(name + ".fuses.conf"); err == nil {
				input.Fuses = cfg
			}
		}
	}

	return orch.Write(input, programmer.WriteOptions{
		Page:                 page,
		NoErase:              *noErase,
		NoProtectOff:         *noProtectOff,
		NoProtectOn:          *noProtectOn,
		NoVerify:             *noVerify,
		SkipIDCheck:          *skipID,
		ContinueOnIDMismatch: *continueOnID,
		SizeMismatch:         sizeMismatchPolicy(),
	})
}

// printChipID implements the -D entry: GET_CHIP_ID bracketed in its
// own transaction (so programming voltage is actually applied),
// followed by an overcurrent check, then the id formatted per its
// type (main.c's idcheck_only branch).
func printChipID(engine *protocol.Engine, desc *device.Descriptor, table device.ChipIDTable) error {
	shift := device.ResolveChipID(desc, table)

	if err := engine.BeginTransaction(); err != nil {
		return err
	}
	idType, id, err := engine.GetChipID()
	if err != nil {
		engine.EndTransaction()
		return err
	}
	status, err := engine.GetStatus()
	if err != nil {
		engine.EndTransaction()
		return err
	}
	if err := engine.EndTransaction(); err != nil {
		return err
	}
	if status.Overcurrent {
		return protocol.ErrOvercurrent
	}

	switch idType {
	case device.ChipIDType1, device.ChipIDType2, device.ChipIDType5:
		fmt.Printf("Chip ID: 0x%02X\n", id)
	case device.ChipIDType3:
		fmt.Printf("Chip ID: 0x%04X Rev.0x%02X\n", id>>5, id&0x1F)
	case device.ChipIDType4:
		fmt.Printf("Chip ID: 0x%04X Rev.0x%02X\n", id>>shift, id&((1<<shift)-1))
	default:
		fmt.Printf("Chip ID: 0x%04X\n", id)
	}
	return nil
}

func printDeviceInfo(name string) error {
	db := device.NewDefaultDatabase()
	d, ok := db.GetByName(name)
	if !ok {
		return fmt.Errorf("unknown device %q", name)
	}
	fmt.Print(d.Info())
	return nil
}

func listDevices(prefix string) error {
	db := device.NewDefaultDatabase()
	names := db.ListPrefix(prefix)

	var w *os.File = os.Stdout
	var pagerCmd *exec.Cmd
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		pager := os.Getenv("PAGER")
		if pager == "" {
			pager = "less"
		}
		pagerCmd = exec.Command(pager)
		pipeR, pipeW, err := os.Pipe()
		if err == nil {
			pagerCmd.Stdin = pipeR
			pagerCmd.Stdout = os.Stdout
			pagerCmd.Stderr = os.Stderr
			if err := pagerCmd.Start(); err == nil {
				w = pipeW
				defer func() {
					pipeW.Close()
					pagerCmd.Wait()
				}()
			}
		}
	}

	for _, d := range names {
		fmt.Fprintln(w, d.Name)
	}
	return nil
}

func okBad(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}

func runSelfTest() error {
	dev, err := transport.Open(vendorID, productID)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Close()

	engine := protocol.NewEngine(dev, &device.Descriptor{}, 0)
	result, err := engine.SelfTest()
	if err != nil {
		return err
	}
	fmt.Printf("VPP failures: %d  VCC failures: %d  GND failures: %d\n",
		result.VPPFailures, result.VCCFailures, result.GNDFailures)
	fmt.Printf("VPP overcurrent protection: %s  VCC overcurrent protection: %s\n",
		okBad(result.VPPOvercurrentOK), okBad(result.VCCOvercurrentOK))
	if !result.OK() {
		return fmt.Errorf("self-test reported failures")
	}
	return nil
}

// firmwareVariant maps the hardware variant GET_SYSTEM_INFO reports
// to the firmware package's own Variant enum (tl866a.c's
// handle->version).
func firmwareVariant(v protocol.HardwareVariant) firmware.Variant {
	if v == protocol.HardwareVariantCS {
		return firmware.VariantCS
	}
	return firmware.VariantA
}

// reopenAndExpectStatus closes dev, reopens it and queries
// GET_SYSTEM_INFO, failing with *firmware.ErrBootloaderState if the
// device did not come back in the wanted lifecycle state (spec.md
// §4.7 steps 6 and 9). It returns the reopened device and a fresh
// engine bound to it.
func reopenAndExpectStatus(dev *transport.Device, want protocol.DeviceStatus) (*transport.Device, *protocol.Engine, error) {
	dev.Close()
	reopened, err := transport.Open(vendorID, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("reopen device: %w", err)
	}
	engine := protocol.NewEngine(reopened, &device.Descriptor{}, 0)
	info, err := engine.GetSystemInfo()
	if err != nil {
		reopened.Close()
		return nil, nil, err
	}
	if info.Status != want {
		reopened.Close()
		return nil, nil, &firmware.ErrBootloaderState{Want: want.String()}
	}
	return reopened, engine, nil
}

// runFirmwareUpdate implements the -F entry (SPEC_FULL.md §6.1): parse
// update.dat, decrypt and CRC-verify both images, learn the connected
// hardware's actual variant, ask which variant's plaintext to flash,
// re-encrypt toward the connected hardware's variant, ensure
// bootloader mode, reflash, then reset back to normal mode.
func runFirmwareUpdate(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	updateDat, err := firmware.Parse(raw)
	if err != nil {
		return err
	}
	a, cs, err := updateDat.DecryptAndVerify()
	if err != nil {
		return err
	}

	dev, err := transport.Open(vendorID, productID)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}

	engine := protocol.NewEngine(dev, &device.Descriptor{}, 0)
	info, err := engine.GetSystemInfo()
	if err != nil {
		dev.Close()
		return err
	}
	dstVariant := firmwareVariant(info.Variant)

	choice := chooseFirmwareVariant(dstVariant)
	srcImage := a
	if choice == firmware.VariantCS {
		srcImage = cs
	}
	dstErase := a.Erase
	if dstVariant == firmware.VariantCS {
		dstErase = cs.Erase
	}

	var payload []byte
	if srcImage.Variant == dstVariant {
		payload = srcImage.Data
	} else {
		payload, err = firmware.Reencrypt(srcImage, dstVariant, dstErase)
		if err != nil {
			dev.Close()
			return err
		}
	}

	if info.Status != protocol.StatusBootloader {
		if err := dev.Reset(); err != nil {
			dev.Close()
			return err
		}
		dev, _, err = reopenAndExpectStatus(dev, protocol.StatusBootloader)
		if err != nil {
			return err
		}
	}

	if err := firmware.EraseBootloader(dev, dstErase); err != nil {
		dev.Close()
		return err
	}
	total := firmware.PacketCount()
	progress := programmer.NewBarProgress()
	progress.StartPhase("reflash", total)
	err = firmware.Reflash(dev, payload, func(sent, _ int) {
		progress.Advance(sent / firmware.BlockSize)
	})
	progress.Done()
	if err != nil {
		dev.Close()
		return err
	}

	if err := dev.Reset(); err != nil {
		dev.Close()
		return err
	}
	dev, _, err = reopenAndExpectStatus(dev, protocol.StatusNormal)
	if err != nil {
		return err
	}
	return dev.Close()
}

// chooseFirmwareVariant asks which hardware variant's plaintext to
// flash, defaulting to the connected hardware's own variant. Exposed
// as a plain function rather than a field so it stays testable by
// substitution in package-level tests if ever needed headlessly.
var chooseFirmwareVariant = func(detected firmware.Variant) firmware.Variant {
	fmt.Printf("Flash variant A or CS? [detected: %s]: ", detected)
	var answer string
	fmt.Scanln(&answer)
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "a":
		return firmware.VariantA
	case "cs":
		return firmware.VariantCS
	default:
		return detected
	}
}
