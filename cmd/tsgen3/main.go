// cmd/tsgen3/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/register"
	"github.com/tamzrod/harp-replicator/internal/simulator"
	"github.com/tamzrod/harp-replicator/internal/transport"
	"github.com/tamzrod/harp-replicator/internal/tsgen3"
)

const usage = `usage: tsgen3 [flags] <command> [args]

commands:
  list                      print the register catalog
  info                      print device identity and versions
  read <register>           read a register
  read-ts <register>        read a register with its device timestamp
  write <register> <value>  write a register (comma separated for arrays)
  events [duration]         print device events, until interrupted or duration

flags:
`

type options struct {
	port     string
	baud     int
	timeout  time.Duration
	simulate bool
}

func main() {
	logger := logging.Init("tsgen3")

	var opts options
	flag.StringVar(&opts.port, "port", "/dev/ttyUSB0", "Serial port of the device")
	flag.IntVar(&opts.baud, "baud", transport.DefaultBaudRate, "Serial baud rate")
	flag.DurationVar(&opts.timeout, "timeout", time.Second, "Per-command reply timeout")
	flag.BoolVar(&opts.simulate, "simulate", false, "Talk to an in-memory device instead of a serial port")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, opts, flag.Args(), &logger); err != nil {
		logger.Error().Err(err).Msg(flag.Arg(0) + " failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, opts options, args []string, logger *zerolog.Logger) error {
	cmd, args := args[0], args[1:]
	if cmd == "list" {
		return list(out)
	}

	d, closeDevice, err := open(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closeDevice()

	switch cmd {
	case "info":
		return info(ctx, out, d)
	case "read", "read-ts":
		if len(args) != 1 {
			return fmt.Errorf("%s: register name required", cmd)
		}
		return read(ctx, out, d, args[0], cmd == "read-ts")
	case "write":
		if len(args) != 2 {
			return errors.New("write: register name and value required")
		}
		return write(ctx, out, d, args[0], args[1])
	case "events":
		wait := time.Duration(0)
		if len(args) == 1 {
			if wait, err = time.ParseDuration(args[0]); err != nil {
				return fmt.Errorf("events: %w", err)
			}
		}
		return watch(ctx, out, d, wait)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func open(ctx context.Context, opts options, logger *zerolog.Logger) (*tsgen3.Device, func(), error) {
	cc := command.Config{Timeout: opts.timeout, Logger: logger}
	if !opts.simulate {
		d, err := tsgen3.Create(ctx, opts.port, tsgen3.Options{BaudRate: opts.baud, Command: cc})
		if err != nil {
			return nil, nil, err
		}
		return d, func() { _ = d.Close() }, nil
	}

	cc.Name = "simulated"
	sim, conn := simulator.Start(tsgen3.Catalog(),
		simulator.WithWhoAmI(tsgen3.WhoAmI),
		simulator.WithValue(tsgen3.AddrBattery, harp.Float32(3.7)),
		simulator.WithLogger(logger),
	)
	d, err := tsgen3.NewDevice(ctx, conn, cc)
	if err != nil {
		_ = sim.Close()
		return nil, nil, err
	}
	return d, func() {
		_ = d.Close()
		_ = sim.Close()
	}, nil
}

func list(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tTYPE\tCOUNT\tACCESS\tDESCRIPTION")
	for _, desc := range tsgen3.Catalog().All() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			desc.Address, desc.Name, desc.Type, desc.Count, desc.Access, desc.Description)
	}
	return tw.Flush()
}

func info(ctx context.Context, out io.Writer, d *tsgen3.Device) error {
	name, err := d.ReadDeviceName(ctx)
	if err != nil {
		return err
	}
	fw, err := d.ReadFirmwareVersion(ctx)
	if err != nil {
		return err
	}
	hw, err := d.ReadHardwareVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "who_am_i: %d\nname:     %s\nfirmware: %s\nhardware: %s\n", d.WhoAmI(), name, fw, hw)
	return nil
}

func lookup(name string) (register.Descriptor, error) {
	desc, ok := tsgen3.Catalog().ByName(name)
	if !ok {
		return register.Descriptor{}, fmt.Errorf("unknown register %q (see tsgen3 list)", name)
	}
	return desc, nil
}

func read(ctx context.Context, out io.Writer, d *tsgen3.Device, name string, timestamped bool) error {
	desc, err := lookup(name)
	if err != nil {
		return err
	}
	if !timestamped {
		v, err := d.Read(ctx, desc.Address)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %s\n", desc.Name, v.Format())
		return nil
	}
	tv, err := d.ReadTimestamped(ctx, desc.Address)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s @ %.6fs\n", desc.Name, tv.Value.Format(), tv.Seconds)
	return nil
}

func write(ctx context.Context, out io.Writer, d *tsgen3.Device, name, text string) error {
	desc, err := lookup(name)
	if err != nil {
		return err
	}
	v, err := harp.ParseValue(desc.Type, text)
	if err != nil {
		return fmt.Errorf("%s: %w", desc.Name, err)
	}
	if err := d.Write(ctx, desc.Address, v); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s <- %s\n", desc.Name, v.Format())
	return nil
}

func watch(ctx context.Context, out io.Writer, d *tsgen3.Device, wait time.Duration) error {
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	cat := tsgen3.Catalog()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.Done():
			return errors.New("device disconnected")
		case m, ok := <-d.Events():
			if !ok {
				return errors.New("device disconnected")
			}
			fmt.Fprintln(out, formatEvent(cat, m))
		}
	}
}

// formatEvent renders one event line. The timestamp column is present only
// when the device sent one.
func formatEvent(cat *register.Catalog, m harp.Message) string {
	fields := make([]string, 0, 3)
	if m.HasTimestamp {
		fields = append(fields, fmt.Sprintf("%.6f", m.Timestamp))
	}
	desc, known := cat.Lookup(m.Address)
	if !known {
		return strings.Join(append(fields, fmt.Sprintf("addr %d", m.Address)), " ")
	}
	fields = append(fields, desc.Name)
	if v, err := m.Value(desc.Type); err == nil {
		fields = append(fields, v.Format())
	}
	return strings.Join(fields, " ")
}
