package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"fenrir/internal/ids"
	"fenrir/internal/netio"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner user id (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel']")

	symbol := flag.String("symbol", "AAPL", "Symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.String("price", "100.00", "Limit price (ignored for market orders)")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	orderID := flag.String("order-id", "", "Order id to cancel")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	side := byte(0)
	if strings.ToLower(*sideStr) == "sell" {
		side = 1
	}
	orderType := byte(0)
	if strings.ToLower(*typeStr) == "market" {
		orderType = 1
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			msg := netio.NewOrderMessage{
				Symbol:    *symbol,
				Side:      side,
				OrderType: orderType,
				Price:     *price,
				Quantity:  q,
				UserID:    *owner,
			}
			if orderType == 1 {
				msg.Price = ""
			}
			if _, err := conn.Write(netio.EncodeNewOrder(msg)); err != nil {
				log.Printf("failed to place order (qty %s): %v", q, err)
			} else {
				fmt.Printf("-> sent %s %s order: %s %s @ %s\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr), *symbol, q, *price)
			}
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -order-id is required for cancellation")
		}
		id, err := ids.Parse(*orderID)
		if err != nil {
			log.Fatalf("invalid -order-id: %v", err)
		}
		if _, err := conn.Write(netio.EncodeCancelOrder(netio.CancelOrderMessage{Symbol: *symbol, OrderID: id})); err != nil {
			log.Printf("failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> sent cancel request for %s\n", *orderID)
		}

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

func parseQuantities(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if _, err := strconv.ParseFloat(p, 64); err == nil {
			result = append(result, p)
		} else {
			log.Printf("warning: invalid quantity %q, skipping", p)
		}
	}
	return result
}

// readReports continuously reads and prints report frames from the server.
func readReports(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Printf("connection lost: %v", err)
			os.Exit(0)
		}

		typ, report, errStr, err := netio.DecodeReport(buf[:n])
		if err != nil {
			log.Printf("error decoding report: %v", err)
			continue
		}
		if typ == netio.ReportError {
			fmt.Printf("\n[SERVER ERROR] %s\n", errStr)
			continue
		}
		fmt.Printf("\n[EXECUTION] order %s | status %d | filled %s | %d trade(s)\n",
			report.OrderID, report.Status, report.FilledQuantity, len(report.Trades))
		for _, t := range report.Trades {
			fmt.Printf("  - qty %s @ %s (maker fee %s, taker fee %s)\n", t.Quantity, t.Price, t.MakerFee, t.TakerFee)
		}
	}
}
