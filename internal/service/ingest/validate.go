package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// 允许上游时钟的偏差, 超过则视为未来时间
const maxClockSkew = 5 * time.Minute

// IsBase58Address solana 地址为 32-44 位 base58
func IsBase58Address(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

// MapMarketplace 把各种来源标记归一到已知市场, 其余为 unknown
func MapMarketplace(source string) entity.Marketplace {
	s := strings.ToLower(strings.TrimSpace(source))
	switch {
	case s == "":
		return entity.MarketplaceUnknown
	case strings.Contains(s, "tensor"):
		return entity.MarketplaceTensor
	case strings.Contains(s, "magic"):
		return entity.MarketplaceMagicEden
	case strings.Contains(s, "hadeswap"):
		return entity.MarketplaceHadeswap
	case strings.Contains(s, "solanart"):
		return entity.MarketplaceSolanart
	}
	return entity.MarketplaceUnknown
}

func optionalAddress(field, value string) error {
	if value == "" || value == "unknown" {
		return nil
	}
	if !IsBase58Address(value) {
		return fmt.Errorf("%w: %s %q is not a base58 address", ErrInvalidSale, field, value)
	}
	return nil
}

// Validate collection id 可以为空, 之后由 mint 反查
func Validate(in SaleInput) error {
	if strings.TrimSpace(in.Signature) == "" {
		return fmt.Errorf("%w: empty signature", ErrInvalidSale)
	}
	if in.PriceSol.IsNegative() {
		return fmt.Errorf("%w: negative price %s", ErrInvalidSale, in.PriceSol)
	}
	if in.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidSale)
	}
	if in.Timestamp.After(time.Now().Add(maxClockSkew)) {
		return fmt.Errorf("%w: timestamp %s is in the future", ErrInvalidSale, in.Timestamp.Format(time.RFC3339))
	}
	if in.CollectionId == "" && in.Mint == "" {
		return fmt.Errorf("%w: neither collection id nor mint", ErrInvalidSale)
	}
	// 按固定顺序校验, 保证拒绝原因稳定
	addresses := []struct{ field, value string }{
		{"buyer", in.Buyer},
		{"seller", in.Seller},
		{"mint", in.Mint},
	}
	for _, addr := range addresses {
		if err := optionalAddress(addr.field, addr.value); err != nil {
			return err
		}
	}
	return nil
}
