// Startup console banner of Candycast, printed once the server is listening.

package main

import (
	"Candycast/internal/config"
	"Candycast/internal/entity"
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode/utf8"
)

const boxWidth = 56

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// localIP returns the first non-loopback IPv4 address, used only so the
// banner can show a reachable URL for other devices on the LAN.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}

// boxLine pads content into an aligned banner row, ignoring ANSI codes.
func boxLine(content string) string {
	visible := utf8.RuneCountInString(ansiPattern.ReplaceAllString(content, ""))
	padding := boxWidth - visible - 2
	if padding < 0 {
		padding = 0
	}
	return "║ " + content + strings.Repeat(" ", padding) + " ║"
}

func centerText(content string) string {
	visible := utf8.RuneCountInString(ansiPattern.ReplaceAllString(content, ""))
	total := boxWidth - visible - 2
	if total < 0 {
		total = 0
	}
	left := total / 2
	return "║ " + strings.Repeat(" ", left) + content + strings.Repeat(" ", total-left) + " ║"
}

func printBanner(cfg config.ServerConfig, state entity.CounterState) {
	line := strings.Repeat("═", boxWidth)
	divider := strings.Repeat("─", boxWidth)

	fmt.Println()
	fmt.Println(centerText("🎃 \x1b[35m\x1b[1mCandycast Counter Server\x1b[0m 🎃"))
	fmt.Println()
	fmt.Printf("╔%s╗\n", line)
	fmt.Println(boxLine(""))
	fmt.Println(boxLine(fmt.Sprintf("🚀 Server: \x1b[36mhttp://%s:%s\x1b[0m", cfg.Addr, cfg.Port)))
	fmt.Println(boxLine(""))
	fmt.Printf("╟%s╢\n", divider)
	fmt.Println(boxLine("\x1b[33m📍 Access Points:\x1b[0m"))
	fmt.Println(boxLine(""))
	fmt.Println(boxLine(fmt.Sprintf("  Display:  \x1b[32mhttp://localhost:%s\x1b[0m", cfg.Port)))
	fmt.Println(boxLine(fmt.Sprintf("  State:    \x1b[32mhttp://localhost:%s/state\x1b[0m", cfg.Port)))
	fmt.Println(boxLine(fmt.Sprintf("  Stats:    \x1b[32mhttp://localhost:%s/stats\x1b[0m", cfg.Port)))
	fmt.Println(boxLine(""))
	fmt.Printf("╟%s╢\n", divider)
	fmt.Println(boxLine("\x1b[33m📱 Network Access:\x1b[0m"))
	fmt.Println(boxLine(""))
	if ip := localIP(); ip != "" {
		fmt.Println(boxLine(fmt.Sprintf("  \x1b[36mhttp://%s:%s\x1b[0m", ip, cfg.Port)))
	} else {
		fmt.Println(boxLine(fmt.Sprintf("  \x1b[36mhttp://<your-ip>:%s\x1b[0m", cfg.Port)))
	}
	fmt.Println(boxLine(""))
	fmt.Printf("╟%s╢\n", divider)
	fmt.Println(boxLine("\x1b[33m📊 Initial State:\x1b[0m"))
	fmt.Println(boxLine(""))
	fmt.Println(boxLine(fmt.Sprintf("  Count:  \x1b[1m%-8d\x1b[0m    Candy: \x1b[1m%d/%d\x1b[0m",
		state.CurrentCount, state.CandyRemaining, state.InitialCandyCount)))
	fmt.Println(boxLine(""))
	fmt.Printf("╚%s╝\n", line)
	fmt.Println("\n\x1b[90mPress Ctrl+C to stop the server\x1b[0m")
	fmt.Println()
}
