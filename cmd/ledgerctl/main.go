// Command ledgerctl previews splits locally and queries or updates a running
// splitledger server.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
	"github.com/mmynk/splitledger/pkg/logging"
)

var (
	server  = kingpin.Flag("server", "Server base URL").Default("http://localhost:8080").Envar("LEDGER_SERVER").String()
	token   = kingpin.Flag("token", "Bearer token").Envar("LEDGER_TOKEN").String()
	timeout = kingpin.Flag("timeout", "Request timeout").Default("10s").Duration()
	verbose = kingpin.Flag("verbose", "Debug logging").Short('v').Bool()

	cmdPreview          = kingpin.Command("preview", "Compute a split locally")
	previewAmount       = cmdPreview.Flag("amount", "Total, e.g. 10.00").Required().String()
	previewMethod       = cmdPreview.Flag("method", "equal, exact, percentage or shares").Default("equal").String()
	previewParticipants = cmdPreview.Flag("participant", "Participant, in order (repeatable)").Required().Strings()
	previewParams       = cmdPreview.Flag("param", "participant=value for exact, percentage or shares (repeatable)").StringMap()

	cmdExpense          = kingpin.Command("expense", "Record an expense")
	expenseID           = cmdExpense.Flag("id", "Expense id, for idempotent retries").String()
	expenseGroup        = cmdExpense.Flag("group", "Group id").Required().String()
	expensePayer        = cmdExpense.Flag("payer", "Payer").Required().String()
	expenseAmount       = cmdExpense.Flag("amount", "Total, e.g. 10.00").Required().String()
	expenseMethod       = cmdExpense.Flag("method", "equal, exact, percentage or shares").Default("equal").String()
	expenseParticipants = cmdExpense.Flag("participant", "Participant, in order (repeatable)").Required().Strings()
	expenseParams       = cmdExpense.Flag("param", "participant=value for exact, percentage or shares (repeatable)").StringMap()
	expenseDescription  = cmdExpense.Flag("description", "Description").String()
	expenseDate         = cmdExpense.Flag("date", "Expense date (YYYY-MM-DD)").String()

	cmdDelete     = kingpin.Command("delete", "Delete an expense")
	deleteGroup   = cmdDelete.Flag("group", "Group id").Required().String()
	deleteExpense = cmdDelete.Arg("expense", "Expense id").Required().String()
	deleteRev     = cmdDelete.Flag("revision", "Only delete if this is the current revision").Int()

	cmdExpenses      = kingpin.Command("expenses", "List a group's expenses")
	expensesGroup    = cmdExpenses.Flag("group", "Group id").Required().String()
	expensesUser     = cmdExpenses.Flag("user", "Only expenses this user paid for or shares").String()
	expensesCategory = cmdExpenses.Flag("category", "Only this category").String()
	expensesFrom     = cmdExpenses.Flag("from", "Earliest expense date (YYYY-MM-DD)").String()
	expensesTo       = cmdExpenses.Flag("to", "Latest expense date (YYYY-MM-DD)").String()
	expensesLimit    = cmdExpenses.Flag("limit", "Page size").Int()
	expensesOffset   = cmdExpenses.Flag("offset", "Rows to skip").Int()

	cmdShares   = kingpin.Command("shares", "Show what a user owes on each expense")
	sharesUser  = cmdShares.Flag("user", "User id").Required().String()
	sharesGroup = cmdShares.Flag("group", "Group id (default all)").String()

	cmdSettlements   = kingpin.Command("settlements", "List a group's settlements")
	settlementsGroup = cmdSettlements.Flag("group", "Group id").Required().String()
	settlementsUser  = cmdSettlements.Flag("user", "Only settlements this user paid or received").String()
	settlementsLimit = cmdSettlements.Flag("limit", "Page size").Int()

	cmdSettle       = kingpin.Command("settle", "Record a settlement")
	settleID        = cmdSettle.Flag("id", "Settlement id, for idempotent retries").String()
	settleGroup     = cmdSettle.Flag("group", "Group id").Required().String()
	settlePayer     = cmdSettle.Flag("payer", "Who paid").Required().String()
	settlePayee     = cmdSettle.Flag("payee", "Who received").Required().String()
	settleAmount    = cmdSettle.Flag("amount", "Amount, e.g. 3.33").Required().String()
	settleMethod    = cmdSettle.Flag("method", "Payment method").String()
	settleReference = cmdSettle.Flag("reference", "External reference").String()

	cmdBalances   = kingpin.Command("balances", "Show balances")
	balancesGroup = cmdBalances.Flag("group", "Group id (default all groups of --user)").String()
	balancesUser  = cmdBalances.Flag("user", "Only edges touching this user").String()

	cmdSummary   = kingpin.Command("summary", "Show per-member totals")
	summaryGroup = cmdSummary.Flag("group", "Group id").Required().String()

	cmdSimplify   = kingpin.Command("simplify", "Suggest a minimal set of transfers")
	simplifyGroup = cmdSimplify.Flag("group", "Group id").Required().String()

	cmdMembers   = kingpin.Command("members", "Add members to a group")
	membersGroup = cmdMembers.Flag("group", "Group id").Required().String()
	membersAdd   = cmdMembers.Arg("user", "User ids").Required().Strings()

	cmdReconcile    = kingpin.Command("reconcile", "Check stored balances against the event history")
	reconcileGroups = cmdReconcile.Flag("group", "Group id (repeatable; default all)").Strings()

	cmdPublish      = kingpin.Command("publish", "Publish a ledger message to the AMQP intake queue")
	publishURL      = cmdPublish.Flag("amqp-url", "Broker URL").Envar("AMQP_URL").Required().String()
	publishExchange = cmdPublish.Flag("exchange", "Exchange").Envar("AMQP_EXCHANGE").Default("splitledger").String()
	publishQueue    = cmdPublish.Flag("queue", "Queue").Envar("AMQP_QUEUE").Default("ledger_events").String()
	publishInput    = cmdPublish.Flag("input", "Message file (default stdin)").OpenFile(os.O_RDONLY, 0666)

	// The retry queue is declared with these; they must match the server's.
	publishAttempts   = cmdPublish.Flag("max-attempts", "Deliveries before dead-lettering").Envar("AMQP_MAX_ATTEMPTS").Default("12").Int()
	publishRetryDelay = cmdPublish.Flag("retry-delay", "Wait between deliveries").Envar("AMQP_RETRY_DELAY").Default("5s").Duration()

	cmdToken      = kingpin.Command("token", "Issue a bearer token")
	tokenSecret   = cmdToken.Flag("secret", "Signing secret").Envar("JWT_SECRET").Required().String()
	tokenUser     = cmdToken.Flag("user", "User id").Required().String()
	tokenDuration = cmdToken.Flag("duration", "Validity").Default("24h").Duration()
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	cmd := kingpin.Parse()
	if *verbose {
		logging.SetupWithLevel(slog.LevelDebug)
	} else {
		logging.Setup()
	}

	switch cmd {
	case cmdPreview.FullCommand():
		preview()
	case cmdToken.FullCommand():
		issueToken()
	case cmdPublish.FullCommand():
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := publish(ctx); err != nil {
			log.Fatal(err)
		}
	default:
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := remote(ctx, cmd, newClient()); err != nil {
			log.Fatal(err)
		}
	}
}

func newClient() apiconnect.LedgerServiceClient {
	var opts []connect.ClientOption
	if *token != "" {
		opts = append(opts, connect.WithInterceptors(middleware.BearerToken(*token)))
	}
	return apiconnect.NewLedgerServiceClient(http.DefaultClient, *server, opts...)
}

func preview() {
	amount, err := money.Parse(*previewAmount)
	if err != nil {
		log.Fatal(err)
	}
	method := models.SplitMethod(*previewMethod)
	params, err := splitParams(method, *previewParams)
	if err != nil {
		log.Fatal(err)
	}
	split, err := calculator.Compute(amount, method, *previewParticipants, params)
	if err != nil {
		log.Fatal(err)
	}

	w := table()
	for _, s := range split {
		fmt.Fprintf(w, "%s\t%s\n", s.Participant, s.Amount)
	}
	fmt.Fprintf(w, "total\t%s\n", split.Total())
	w.Flush()
}

func issueToken() {
	tok, err := auth.NewJWTManager(*tokenSecret, *tokenDuration).Generate(*tokenUser)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok)
}

func publish(ctx context.Context) error {
	input := io.Reader(os.Stdin)
	if *publishInput != nil {
		defer (*publishInput).Close()
		input = *publishInput
	}
	data, err := io.ReadAll(input)
	if err != nil {
		return err
	}
	env, err := events.EnvelopeFromJSON(data)
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	client, err := events.NewClient(*publishURL, *publishExchange, *publishQueue,
		events.WithRetry(*publishAttempts, *publishRetryDelay))
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Publish(ctx, env)
}

func remote(ctx context.Context, cmd string, client apiconnect.LedgerServiceClient) error {
	switch cmd {
	case cmdExpense.FullCommand():
		return createExpense(ctx, client)

	case cmdDelete.FullCommand():
		resp, err := client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{
			GroupID:   *deleteGroup,
			ExpenseID: *deleteExpense,
			Revision:  *deleteRev,
		}))
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s%s\n", resp.Msg.EventID, duplicateNote(resp.Msg.Duplicate))

	case cmdSettle.FullCommand():
		amount, err := money.Parse(*settleAmount)
		if err != nil {
			return err
		}
		resp, err := client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
			ID:        *settleID,
			GroupID:   *settleGroup,
			PayerID:   *settlePayer,
			PayeeID:   *settlePayee,
			Amount:    amount,
			Method:    *settleMethod,
			Reference: *settleReference,
		}))
		if err != nil {
			return err
		}
		s := resp.Msg.Settlement
		fmt.Printf("settlement %s: %s paid %s %s%s\n", s.ID, s.PayerID, s.PayeeID, s.Amount, duplicateNote(resp.Msg.Duplicate))

	case cmdExpenses.FullCommand():
		resp, err := client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{
			GroupID:  *expensesGroup,
			UserID:   *expensesUser,
			Category: *expensesCategory,
			From:     *expensesFrom,
			To:       *expensesTo,
			Limit:    *expensesLimit,
			Offset:   *expensesOffset,
		}))
		if err != nil {
			return err
		}
		w := table()
		for _, e := range resp.Msg.Expenses {
			fmt.Fprintf(w, "%s	%s	%s	%s	%s	%s\n", e.ID, e.ExpenseDate, e.PayerID, e.Amount, e.Status, e.Description)
		}
		w.Flush()

	case cmdShares.FullCommand():
		resp, err := client.ListUserShares(ctx, connect.NewRequest(&api.ListUserSharesRequest{
			UserID:  *sharesUser,
			GroupID: *sharesGroup,
		}))
		if err != nil {
			return err
		}
		w := table()
		for _, sh := range resp.Msg.Shares {
			fmt.Fprintf(w, "%s	%s	paid by %s	%s	%s\n", sh.GroupID, sh.ExpenseID, sh.PayerID, sh.Amount, sh.Description)
		}
		fmt.Fprintf(w, "total			%s\n", resp.Msg.Total)
		w.Flush()

	case cmdSettlements.FullCommand():
		resp, err := client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{
			GroupID: *settlementsGroup,
			UserID:  *settlementsUser,
			Limit:   *settlementsLimit,
		}))
		if err != nil {
			return err
		}
		w := table()
		for _, st := range resp.Msg.Settlements {
			fmt.Fprintf(w, "%s	%s	paid	%s	%s	%s\n", st.ID, st.PayerID, st.PayeeID, st.Amount, st.Method)
		}
		w.Flush()

	case cmdBalances.FullCommand():
		if *balancesGroup == "" {
			if *balancesUser == "" {
				return fmt.Errorf("balances needs --group, --user or both")
			}
			resp, err := client.GetAllUserBalances(ctx, connect.NewRequest(&api.GetAllUserBalancesRequest{UserID: *balancesUser}))
			if err != nil {
				return err
			}
			printEdges(resp.Msg.Edges)
			for _, g := range resp.Msg.Groups {
				fmt.Printf("net in %s: %s\n", g.GroupID, g.Net)
			}
			fmt.Printf("net for %s: %s\n", *balancesUser, resp.Msg.Net)
			return nil
		}
		if *balancesUser == "" {
			resp, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: *balancesGroup}))
			if err != nil {
				return err
			}
			printEdges(resp.Msg.Edges)
			return nil
		}
		resp, err := client.GetUserBalances(ctx, connect.NewRequest(&api.GetUserBalancesRequest{
			GroupID: *balancesGroup,
			UserID:  *balancesUser,
		}))
		if err != nil {
			return err
		}
		printEdges(resp.Msg.Edges)
		fmt.Printf("net for %s: %s\n", *balancesUser, resp.Msg.Net)

	case cmdSummary.FullCommand():
		resp, err := client.GetGroupSummary(ctx, connect.NewRequest(&api.GetGroupSummaryRequest{GroupID: *summaryGroup}))
		if err != nil {
			return err
		}
		w := table()
		fmt.Fprintln(w, "member\tnet\towed\towing")
		for _, m := range resp.Msg.Members {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.UserID, m.Net, m.Owed, m.Owing)
		}
		w.Flush()

	case cmdSimplify.FullCommand():
		resp, err := client.SimplifyDebts(ctx, connect.NewRequest(&api.SimplifyDebtsRequest{GroupID: *simplifyGroup}))
		if err != nil {
			return err
		}
		printEdges(resp.Msg.Transfers)

	case cmdMembers.FullCommand():
		resp, err := client.AddMembers(ctx, connect.NewRequest(&api.AddMembersRequest{
			GroupID: *membersGroup,
			UserIDs: *membersAdd,
		}))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %v\n", resp.Msg.GroupID, resp.Msg.Members)

	case cmdReconcile.FullCommand():
		resp, err := client.Reconcile(ctx, connect.NewRequest(&api.ReconcileRequest{GroupIDs: *reconcileGroups}))
		if err != nil {
			return err
		}
		fmt.Printf("checked %d groups, %d inconsistent\n", resp.Msg.Checked, len(resp.Msg.Inconsistent))
		for _, g := range resp.Msg.Inconsistent {
			for _, p := range g.Problems {
				fmt.Printf("  %s: %s\n", g.GroupID, p)
			}
		}
		if len(resp.Msg.Inconsistent) > 0 {
			os.Exit(2)
		}
	}
	return nil
}

func createExpense(ctx context.Context, client apiconnect.LedgerServiceClient) error {
	amount, err := money.Parse(*expenseAmount)
	if err != nil {
		return err
	}
	method := models.SplitMethod(*expenseMethod)
	params, err := splitParams(method, *expenseParams)
	if err != nil {
		return err
	}
	date := *expenseDate
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}

	resp, err := client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Expense: api.ExpenseInput{
			ID:           *expenseID,
			GroupID:      *expenseGroup,
			PayerID:      *expensePayer,
			Amount:       amount,
			Method:       method,
			Participants: *expenseParticipants,
			Params:       params,
			Description:  *expenseDescription,
			ExpenseDate:  date,
		},
	}))
	if err != nil {
		return err
	}

	fmt.Printf("expense %s revision %d%s\n", resp.Msg.Expense.ID, resp.Msg.Expense.Revision, duplicateNote(resp.Msg.Duplicate))
	w := table()
	for _, s := range resp.Msg.Shares {
		fmt.Fprintf(w, "%s\t%s\n", s.ParticipantID, s.Amount)
	}
	w.Flush()
	return nil
}

func printEdges(edges []models.Edge) {
	if len(edges) == 0 {
		fmt.Println("all settled")
		return
	}
	w := table()
	for _, e := range edges {
		fmt.Fprintf(w, "%s\t%s\towes\t%s\t%s\n", e.GroupID, e.Debtor, e.Creditor, e.Amount)
	}
	w.Flush()
}

func duplicateNote(dup bool) string {
	if dup {
		return " (already recorded)"
	}
	return ""
}

func table() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}
