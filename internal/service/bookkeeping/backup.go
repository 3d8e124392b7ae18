package bookkeeping

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

// CSVKind selects the column mapping of a CSV import.
type CSVKind string

const (
	CSVProducts    CSVKind = "products"
	CSVInvestments CSVKind = "investments"
	CSVSales       CSVKind = "sales"
	CSVExpenses    CSVKind = "expenses"
)

func (s *Service) loadSnapshot(ctx context.Context, ns string) (models.Snapshot, error) {
	var (
		snap models.Snapshot
		err  error
	)
	if snap.Products, err = s.loadProducts(ctx, ns); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Investments, err = loadRecords(ctx, s, ns, kv.KeyInvestments, investmentID); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Sales, err = loadRecords(ctx, s, ns, kv.KeySales, saleID); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Expenses, err = loadRecords(ctx, s, ns, kv.KeyExpenses, expenseID); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// Export returns every record collection as a backup snapshot.
func (s *Service) Export(ctx context.Context, ns string) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSnapshot(ctx, ns)
}

// Import overwrites the collections present in the snapshot and leaves the
// others untouched.
func (s *Service) Import(ctx context.Context, ns string, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Products != nil {
		if err := saveList(ctx, s.store, ns, kv.KeyProducts, dedupeProducts(snap.Products)); err != nil {
			return err
		}
	}
	if snap.Investments != nil {
		if err := saveList(ctx, s.store, ns, kv.KeyInvestments, snap.Investments); err != nil {
			return err
		}
	}
	if snap.Sales != nil {
		if err := saveList(ctx, s.store, ns, kv.KeySales, snap.Sales); err != nil {
			return err
		}
	}
	if snap.Expenses != nil {
		if err := saveList(ctx, s.store, ns, kv.KeyExpenses, snap.Expenses); err != nil {
			return err
		}
	}

	s.logger.Info("snapshot imported",
		zap.String("namespace", ns),
		zap.Int("products", len(snap.Products)),
		zap.Int("investments", len(snap.Investments)),
		zap.Int("sales", len(snap.Sales)),
		zap.Int("expenses", len(snap.Expenses)))
	return nil
}

// ImportCSV appends (or, for products, upserts) the rows of a header-driven
// CSV file and returns the number of rows imported.
func (s *Service) ImportCSV(ctx context.Context, ns string, kind CSVKind, r io.Reader) (int, error) {
	rows, err := readCSV(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return 0, err
	}

	switch kind {
	case CSVProducts:
		for i, row := range rows {
			p, err := productFromRow(row)
			if err != nil {
				return 0, rowError(i, err)
			}
			products = upsertProduct(products, p)
		}
		err = saveList(ctx, s.store, ns, kv.KeyProducts, dedupeProducts(products))

	case CSVInvestments:
		list, lerr := loadRecords(ctx, s, ns, kv.KeyInvestments, investmentID)
		if lerr != nil {
			return 0, lerr
		}
		for i, row := range rows {
			packs, batch, perr := packsAndBatch(row)
			if perr != nil {
				return 0, rowError(i, perr)
			}
			key := models.ProductKey(row["size"], row["color"])
			list = append(list, models.InventoryEntry{
				ID:    s.newID(),
				Key:   key,
				Packs: packs,
				Batch: batch,
				Date:  row["date"],
				Cost:  costFor(products, key, packs),
			})
		}
		err = saveList(ctx, s.store, ns, kv.KeyInvestments, list)

	case CSVSales:
		list, lerr := loadRecords(ctx, s, ns, kv.KeySales, saleID)
		if lerr != nil {
			return 0, lerr
		}
		for i, row := range rows {
			packs, batch, perr := packsAndBatch(row)
			if perr != nil {
				return 0, rowError(i, perr)
			}
			price, perr := optionalNumber(row["price100"])
			if perr != nil {
				return 0, rowError(i, perr)
			}
			key := models.ProductKey(row["size"], row["color"])
			sale := newSale(products, key, packs, price, row["date"], batch, row["customer"], "", row["pay"])
			sale.ID = s.newID()
			list = append(list, sale)
		}
		err = saveList(ctx, s.store, ns, kv.KeySales, list)

	case CSVExpenses:
		list, lerr := loadRecords(ctx, s, ns, kv.KeyExpenses, expenseID)
		if lerr != nil {
			return 0, lerr
		}
		for i, row := range rows {
			amount, perr := strconv.ParseFloat(row["amountTK"], 64)
			if perr != nil {
				return 0, rowError(i, fmt.Errorf("amountTK %q is not a number", row["amountTK"]))
			}
			typ := row["type"]
			if typ == "" {
				typ = "Other"
			}
			list = append(list, models.Expense{
				ID:     s.newID(),
				Type:   typ,
				Desc:   row["description"],
				Date:   row["date"],
				Amount: amount,
			})
		}
		err = saveList(ctx, s.store, ns, kv.KeyExpenses, list)

	default:
		return 0, invalid("unknown csv kind %q", kind)
	}

	if err != nil {
		return 0, err
	}

	s.logger.Info("csv imported", zap.String("namespace", ns), zap.String("kind", string(kind)), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// readCSV maps every data row by its trimmed header names.
func readCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid("csv is empty")
	}
	if err != nil {
		return nil, invalid("read csv header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalid("read csv: %v", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowError(i int, err error) error {
	return fmt.Errorf("%w: row %d: %v", ErrInvalidArguments, i+2, err)
}

func productFromRow(row map[string]string) (models.Product, error) {
	buy, err := strconv.ParseFloat(row["buy1"], 64)
	if err != nil {
		return models.Product{}, fmt.Errorf("buy1 %q is not a number", row["buy1"])
	}
	sell, err := strconv.ParseFloat(row["sell1"], 64)
	if err != nil {
		return models.Product{}, fmt.Errorf("sell1 %q is not a number", row["sell1"])
	}
	lowest, err := optionalNumber(row["lowest"])
	if err != nil {
		return models.Product{}, err
	}
	return models.Product{
		Type:   row["type"],
		Size:   row["size"],
		Color:  row["color"],
		Buy1:   buy,
		Sell1:  sell,
		Lowest: lowest,
	}, nil
}

func upsertProduct(products []models.Product, p models.Product) []models.Product {
	for i := range products {
		if products[i].UniqueKey() == p.UniqueKey() {
			products[i] = p
			return products
		}
	}
	return append(products, p)
}

func packsAndBatch(row map[string]string) (int, int, error) {
	packs, err := strconv.Atoi(row["packs"])
	if err != nil {
		return 0, 0, fmt.Errorf("packs %q is not an integer", row["packs"])
	}
	batch, err := strconv.Atoi(row["batch"])
	if err != nil {
		return 0, 0, fmt.Errorf("batch %q is not an integer", row["batch"])
	}
	return packs, batch, nil
}

func optionalNumber(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", v)
	}
	return &f, nil
}
