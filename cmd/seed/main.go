package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/protocol"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

// Runs a full in-process demo scenario against a fresh ledger: register a
// collection, mint and rent assets, split earnings, claim, fund notes, stake
// them and settle a marketplace sale. Useful as a smoke run and as living
// documentation of the flows.
func main() {
	var (
		assets  = flag.Int("assets", 4, "number of rental assets to mint")
		rounds  = flag.Int("rounds", 3, "number of earnings payments per renter")
		payment = flag.String("payment", "10", "earnings amount paid per round")
		verbose = flag.Bool("verbose", false, "log protocol internals")
	)
	flag.Parse()

	logOut := io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))

	perRound, err := domain.ParseAmount(*payment)
	if err != nil {
		fail("invalid payment amount: %v", err)
	}

	ledger := token.NewLedger()
	svc, err := protocol.NewService(protocol.Options{
		Logger:        logger,
		Clock:         time.Now,
		Payment:       ledger,
		Admin:         "admin",
		FeeRecipient:  "platform-treasury",
		FeeRateBps:    100,
		NotesAccount:  "lpn-escrow",
		NotePriceCap:  100_000_000,
		PoolAccount:   "staking-pool",
		MarketAccount: "marketplace",
	})
	if err != nil {
		fail("build protocol: %v", err)
	}

	ctx := context.Background()
	heading := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	info := color.New(color.FgWhite)

	heading.Println("== collection ==")
	const fleet = domain.Address("fleet-1")
	if err := svc.AddCollection(ctx, "admin", fleet, "Demo Fleet"); err != nil {
		fail("add collection: %v", err)
	}
	ok.Printf("registered collection %s\n", fleet)

	heading.Println("== mint & rent ==")
	owner := domain.Address("owner-1")
	renter := domain.Address("renter-1")
	expires := time.Now().Add(24 * time.Hour).Unix()
	ids := make([]domain.TokenID, 0, *assets)
	for i := 0; i < *assets; i++ {
		id, err := svc.MintAsset(ctx, "admin", fleet, owner, fmt.Sprintf("ipfs://demo/asset-%d", i))
		if err != nil {
			fail("mint asset: %v", err)
		}
		if err := svc.SetUser(ctx, owner, fleet, id, renter, expires); err != nil {
			fail("set user: %v", err)
		}
		ids = append(ids, id)
	}
	ok.Printf("minted %d assets to %s, rented to %s until %s\n",
		len(ids), owner, renter, time.Unix(expires, 0).Format(time.RFC3339))

	heading.Println("== earnings ==")
	fund := perRound * uint64(*rounds)
	ledger.Mint(renter, fund)
	ledger.Approve(renter, fleet, fund)
	for i := 0; i < *rounds; i++ {
		if err := svc.PayEarningsAllRented(ctx, renter, fleet, perRound); err != nil {
			fail("pay earnings: %v", err)
		}
	}
	total, err := svc.UnclaimedEarningsAll(fleet, owner)
	if err != nil {
		fail("unclaimed earnings: %v", err)
	}
	info.Printf("renter paid %s across %d rounds, owner escrow holds %s\n",
		domain.FormatAmount(fund), *rounds, domain.FormatAmount(total))

	var claimed, fees uint64
	for _, id := range ids {
		unclaimed, err := svc.UnclaimedEarnings(fleet, id)
		if err != nil || unclaimed == 0 {
			continue
		}
		paid, fee, err := svc.ClaimEarnings(ctx, owner, fleet, id)
		if err != nil {
			fail("claim earnings: %v", err)
		}
		claimed += paid
		fees += fee
	}
	ok.Printf("owner claimed %s, platform fee %s\n",
		domain.FormatAmount(claimed), domain.FormatAmount(fees))

	heading.Println("== funding notes & staking ==")
	investor := domain.Address("investor-1")
	noteCost := svc.NotePriceCap() * 3
	ledger.Mint(investor, noteCost)
	ledger.Approve(investor, "lpn-escrow", noteCost)
	noteIDs, err := svc.MintNotes(ctx, investor, investor, "ipfs://demo/note", 3)
	if err != nil {
		fail("mint notes: %v", err)
	}
	if err := svc.ApproveNoteOperator(ctx, investor, svc.PoolAccount(), true); err != nil {
		fail("approve pool operator: %v", err)
	}
	if err := svc.StakeNotes(ctx, investor, noteIDs); err != nil {
		fail("stake notes: %v", err)
	}
	collected, err := svc.CollectPoolFunding(ctx, "admin", noteIDs)
	if err != nil {
		fail("collect funding: %v", err)
	}
	ok.Printf("investor staked %d notes, pool collected %s\n",
		len(noteIDs), domain.FormatAmount(collected))

	heading.Println("== marketplace ==")
	buyer := domain.Address("buyer-1")
	price := uint64(50_000_000)
	ledger.Mint(buyer, price)
	ledger.Approve(buyer, svc.MarketAccount(), price)
	if err := svc.SetApprovalForAll(ctx, owner, fleet, svc.MarketAccount(), true); err != nil {
		fail("approve marketplace: %v", err)
	}
	if err := svc.ListForSale(ctx, owner, fleet, ids[0], price); err != nil {
		fail("list for sale: %v", err)
	}
	if err := svc.Buy(ctx, buyer, fleet, ids[0], price); err != nil {
		fail("buy: %v", err)
	}
	ok.Printf("asset %d sold to %s for %s\n", ids[0], buyer, domain.FormatAmount(price))

	heading.Println("== balances ==")
	for _, addr := range []domain.Address{owner, renter, investor, buyer, "platform-treasury", "staking-pool"} {
		info.Printf("%-18s %s\n", addr, domain.FormatAmount(ledger.BalanceOf(addr)))
	}
}

func fail(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
