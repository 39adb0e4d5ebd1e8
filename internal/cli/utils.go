package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pos_umkm/internal/catalog"
	"pos_umkm/internal/order"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// trackCall times a remote-bound command and logs its outcome.
func trackCall[T any](logger *zap.Logger, name string, args []string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)

	errText := ""
	if err != nil {
		errText = err.Error()
	}
	logger.Info("command call",
		zap.String("name", name),
		zap.Strings("args", args),
		zap.Int64("ms", elapsed.Milliseconds()),
		zap.Bool("ok", err == nil),
		zap.String("err", errText),
	)
	return result, err
}

func friendlyError(err error) string {
	var (
		apiErr *remote.APIError
		msg    string
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errUsage):
		msg = strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
		return "Penggunaan: " + msg
	case errors.Is(err, errUnknownCommand):
		return err.Error() + " (ketik 'help')"
	case errors.Is(err, session.ErrNoStore):
		return "store_id belum diatur: gunakan -store-id atau STORE_ID."
	case errors.Is(err, remote.ErrMissingURL):
		return "remote_url belum diatur: gunakan -remote-url atau REMOTE_URL."
	case errors.Is(err, remote.ErrUnauthorized):
		return "Tidak ada akses: API key salah atau tidak punya izin."
	case errors.Is(err, remote.ErrRateLimited):
		return "Terlalu banyak permintaan. Coba lagi nanti."
	case errors.Is(err, remote.ErrUnavailable):
		return "Server tidak dapat dihubungi. Coba lagi nanti."
	case errors.Is(err, shift.ErrNoOpenShift):
		return "Belum ada shift yang dibuka."
	case errors.Is(err, shift.ErrNegativeCash):
		return "Modal awal tidak boleh negatif."
	case errors.Is(err, shift.ErrShiftNotSynced):
		return "Shift belum tersinkron ke server. Jalankan sync saat online."
	case errors.Is(err, shift.ErrOffline), errors.Is(err, order.ErrOffline),
		errors.Is(err, order.ErrSaveNeedsOnline), errors.Is(err, order.ErrResumeNeedsOnline):
		return "Perlu koneksi internet untuk tindakan ini."
	case errors.Is(err, shift.ErrNotPendingClose):
		return "Jalankan close-shift terlebih dahulu untuk melihat laporan."
	case errors.Is(err, shift.ErrCloseInterrupted):
		return "Tutup shift gagal di tengah jalan, shift masih terbuka. Coba lagi."
	case errors.Is(err, order.ErrEmptyCart):
		return "Keranjang kosong."
	case errors.Is(err, order.ErrAlreadyPaid):
		return "Pesanan sudah dibayar."
	case errors.Is(err, order.ErrInsufficientCash):
		return "Uang tunai kurang dari total."
	case errors.Is(err, order.ErrMovesEverything):
		return "Tidak bisa memindahkan semua item. Gunakan fitur edit atau hapus pesanan."
	case errors.Is(err, order.ErrNotSynced):
		return "Pesanan masih menunggu sinkronisasi."
	case errors.Is(err, order.ErrSelfMerge):
		return "Pesanan tidak bisa digabung dengan dirinya sendiri."
	case errors.Is(err, session.ErrNotInCart):
		return "Produk tidak ada di keranjang."
	case errors.Is(err, catalog.ErrUnknownProduct):
		return "Produk tidak ditemukan."
	case errors.Is(err, catalog.ErrNoSnapshot):
		return "Katalog belum pernah dimuat. Hubungkan ke internet sekali."
	case errors.Is(err, queue.ErrNotQueued):
		return "Operasi tidak ada di antrean."
	case errors.Is(err, syncer.ErrPassInFlight):
		return "Sinkronisasi sedang berjalan."
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Server menolak permintaan (%d).", apiErr.StatusCode)
	default:
		return err.Error()
	}
}

// parseMoney accepts plain numbers and Indonesian formatting such as
// "Rp. 50.000" or "12.500,50".
func parseMoney(value string) (decimal.Decimal, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.TrimPrefix(s, "rp.")
	s = strings.TrimPrefix(s, "rp")
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	return d, nil
}

func parseStatus(value string) (pos.OrderStatus, error) {
	status := pos.OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case pos.StatusPending, pos.StatusCooking, pos.StatusReady, pos.StatusPaid, pos.StatusCompleted, pos.StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

func parseQuantity(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid quantity %q", value)
	}
	return n, nil
}
