package beebem

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"
)

// StationEntry maps one Econet station to the UDP endpoint of the emulator
// instance playing it.
type StationEntry struct {
	Network  uint8
	Station  uint8
	AddrPort netip.AddrPort
}

// Addr returns the station as network*256+station.
func (e StationEntry) Addr() uint16 {
	return uint16(e.Network)<<8 | uint16(e.Station)
}

// LoadStations reads a BeebEm Econet configuration file.
func LoadStations(path string) ([]StationEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ParseStations(f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return entries, nil
}

// ParseStations parses "network station ip port" lines. Blank lines and
// lines starting with '#' are skipped. A station listed twice is an error.
func ParseStations(r io.Reader) ([]StationEntry, error) {
	var entries []StationEntry
	seen := make(map[uint16]bool)

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%d: malformed config line", lineno)
		}
		network, err1 := strconv.ParseUint(fields[0], 10, 8)
		station, err2 := strconv.ParseUint(fields[1], 10, 8)
		ip, err3 := netip.ParseAddr(fields[2])
		port, err4 := strconv.ParseUint(fields[3], 10, 16)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || port == 0 {
			return nil, fmt.Errorf("%d: malformed config line", lineno)
		}

		e := StationEntry{
			Network:  uint8(network),
			Station:  uint8(station),
			AddrPort: netip.AddrPortFrom(ip.Unmap(), uint16(port)),
		}
		if seen[e.Addr()] {
			return nil, fmt.Errorf("%d: Econet station %d.%d listed twice", lineno, network, station)
		}
		seen[e.Addr()] = true
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
