package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bookd/internal/client"
	"bookd/internal/config"
	"bookd/internal/netsim"
	"bookd/internal/observability"
	"bookd/internal/timeslot"
)

// Usage: bookctl [host [port [semantics [lossRate [seed]]]]]
func main() {
	observability.InitLogger("bookctl")

	cfg, err := config.LoadClientConfig(os.Getenv("BOOKCTL_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	args := os.Args[1:]
	if len(args) == 0 {
		log.Info().Msg("no args provided, using defaults: 127.0.0.1 5000 AMO 0.0 777")
	}
	if err := cfg.ApplyArgs(args); err != nil {
		log.Fatal().Err(err).Msg("bad arguments")
	}
	sem, err := config.ParseSemantics(cfg.Semantics)
	if err != nil {
		log.Fatal().Err(err).Msg("bad semantics")
	}

	c, err := client.Dial(cfg.Host, cfg.Port, sem,
		netsim.NewDropper(cfg.LossRate, cfg.Seed), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to reach server")
	}
	defer c.Close()

	fmt.Printf("Client ready. Semantics=%s lossRate=%g\n",
		config.SemanticsName(sem), cfg.LossRate)
	menu(c)
}

// Facilities the default server config preloads.
var facilities = []string{"RoomA", "RoomB", "LT1"}

func printFacilitiesLine() {
	fmt.Println("Available facilities (server-preloaded): " + strings.Join(facilities, ", "))
}

func menu(c *client.Client) {
	in := bufio.NewScanner(os.Stdin)
	printFacilitiesLine()
	for {
		fmt.Println("\n--- Menu ---")
		fmt.Println("1) Query availability")
		fmt.Println("2) Book")
		fmt.Println("3) Change booking (shift time, keep duration)")
		fmt.Println("4) Monitor (blocking)")
		fmt.Println("5) Cancel booking (idempotent)")
		fmt.Println("6) Extend/Shorten booking (non-idempotent)")
		fmt.Println("7) Query booking")
		fmt.Println("0) Exit")
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		var err error
		switch strings.TrimSpace(in.Text()) {
		case "1":
			err = doQuery(c, in)
		case "2":
			err = doBook(c, in)
		case "3":
			err = doChange(c, in)
		case "4":
			err = doMonitor(c, in)
		case "5":
			err = doCancel(c, in)
		case "6":
			err = doExtend(c, in)
		case "7":
			err = doQueryBooking(c, in)
		case "0":
			fmt.Println("Bye.")
			return
		default:
			fmt.Println("Invalid choice.")
		}
		if err != nil {
			fmt.Println("ERROR: " + err.Error())
		}
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func doQuery(c *client.Client, in *bufio.Scanner) error {
	printFacilitiesLine()
	facility := prompt(in, "Facility: ")
	days := prompt(in, "Days (e.g., Mon,Tue): ")
	rep, err := c.Query(facility, days)
	if err != nil {
		return err
	}
	showReply(rep)
	return nil
}

func doBook(c *client.Client, in *bufio.Scanner) error {
	printFacilitiesLine()
	facility := prompt(in, "Facility: ")
	day, start, err := parseDayTime(prompt(in, "Start (e.g., Mon@09:00): "))
	if err != nil {
		return err
	}
	_, end, err := parseDayTime(prompt(in, "End   (e.g., Mon@10:30): "))
	if err != nil {
		return err
	}
	rep, err := c.Book(facility, int32(day), int32(start), int32(end))
	if err != nil {
		return err
	}
	showReply(rep)
	return nil
}

func doChange(c *client.Client, in *bufio.Scanner) error {
	id, err := parseID(prompt(in, "Confirmation ID (code or full string): "))
	if err != nil {
		return err
	}
	shift, err := strconv.Atoi(prompt(in, "Shift time (minutes, +forward / -backward, e.g., +60 or -30): "))
	if err != nil {
		return err
	}
	rep, err := c.Change(id, int32(shift))
	if err != nil {
		return err
	}
	showReply(rep)
	return nil
}

func doMonitor(c *client.Client, in *bufio.Scanner) error {
	printFacilitiesLine()
	facility := prompt(in, "Facility: ")
	seconds, err := strconv.Atoi(prompt(in, "Monitor seconds: "))
	if err != nil {
		return err
	}
	rep, err := c.MonitorRegister(facility, int32(seconds))
	if err != nil {
		return err
	}
	showReply(rep)
	if rep.IsError {
		return nil
	}

	fmt.Println("Waiting for updates (Ctrl+C to quit client if needed)...")
	err = c.Listen(time.Duration(seconds)*time.Second, func(facility, text string) {
		fmt.Printf("\n[UPDATE] %s\n%s\n", facility, text)
	})
	if err != nil {
		return err
	}
	fmt.Println("Monitor interval finished.")
	return nil
}

func doCancel(c *client.Client, in *bufio.Scanner) error {
	id, err := parseID(prompt(in, "Confirmation ID (code or full string): "))
	if err != nil {
		return err
	}
	rep, err := c.Cancel(id)
	if err != nil {
		return err
	}
	showReply(rep)
	return nil
}

func doExtend(c *client.Client, in *bufio.Scanner) error {
	id, err := parseID(prompt(in, "Confirmation ID (code or full string): "))
	if err != nil {
		return err
	}
	fmt.Println("Adjust start/end time (non-idempotent):")
	startDelta, err := strconv.Atoi(prompt(in, "Start delta (min, +later/-earlier, e.g. +30 or -15): "))
	if err != nil {
		return err
	}
	endDelta, err := strconv.Atoi(prompt(in, "End delta (min, +extend/-shorten, e.g. +60 or -30): "))
	if err != nil {
		return err
	}
	rep, err := c.Extend(id, int32(startDelta), int32(endDelta))
	if err != nil {
		return err
	}
	showReply(rep)
	return nil
}

func doQueryBooking(c *client.Client, in *bufio.Scanner) error {
	id, err := parseID(prompt(in, "Confirmation ID (code or full string): "))
	if err != nil {
		return err
	}
	rep, err := c.QueryBooking(id)
	if err != nil {
		return err
	}
	showReply(rep)
	return nil
}

// parseDayTime splits "Mon@09:00" into a day index and minute-of-day.
func parseDayTime(s string) (day, minute int, err error) {
	parts := strings.SplitN(s, "@", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected Day@HH:MM, got %q", s)
	}
	day, err = timeslot.DayIndex(parts[0])
	if err != nil {
		return 0, 0, err
	}
	minute, err = timeslot.ParseHM(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return day, minute, nil
}

var confirmEcho = regexp.MustCompile(`^(CONFIRM|CHANGED|CANCELED|EXTENDED)#\s*(\d+)`)

// parseID accepts a bare confirmation code or a full reply echo like
// "CONFIRM# 123".
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if m := confirmEcho.FindStringSubmatch(s); m != nil {
		s = m[2]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid confirmation id %q", s)
	}
	return id, nil
}

// showReply renders a server reply. Error replies get an ERROR: prefix;
// the server may itself embed "ERROR:" in payload text, which is never
// double-prefixed here.
func showReply(rep *client.Reply) {
	if rep.IsError {
		fmt.Println("ERROR: " + rep.Text)
		return
	}
	text := strings.TrimSpace(rep.Text)
	if m := confirmEcho.FindStringSubmatch(text); m != nil {
		fmt.Println("Result: " + m[1])
		fmt.Println("Code  : " + m[2] + "  (<- save this code)")
		return
	}
	fmt.Println(text)
}
