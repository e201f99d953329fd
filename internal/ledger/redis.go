package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	balanceKeyPrefix = "colorgame:balance:"
	accountsKey      = "colorgame:accounts"
)

//go:embed debit.lua
var debitLuaScript string

//go:embed bulk_credit.lua
var bulkCreditLuaScript string

var (
	debitScript      = redis.NewScript(debitLuaScript)
	bulkCreditScript = redis.NewScript(bulkCreditLuaScript)
)

// RedisStore keeps balances as integer keys. Conditional debits and bulk
// credits run as Lua scripts so each is a single atomic step on the server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed balance store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func balanceKey(account string) string {
	return balanceKeyPrefix + account
}

// Balance returns the balance for account, registering it when missing.
func (s *RedisStore) Balance(ctx context.Context, account string) (int64, error) {
	pipe := s.client.TxPipeline()
	pipe.SetNX(ctx, balanceKey(account), 0, 0)
	pipe.SAdd(ctx, accountsKey, account)
	get := pipe.Get(ctx, balanceKey(account))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("balance %s: %w", account, err)
	}
	return get.Int64()
}

// Lookup reads the balance key without creating it.
func (s *RedisStore) Lookup(ctx context.Context, account string) (int64, bool, error) {
	balance, err := s.client.Get(ctx, balanceKey(account)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s: %w", account, err)
	}
	return balance, true, nil
}

// ConditionalDecrement evaluates debit.lua.
func (s *RedisStore) ConditionalDecrement(ctx context.Context, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	res, err := debitScript.Run(ctx, s.client, []string{balanceKey(account), accountsKey}, amount, account).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("debit %s: %w", account, err)
	}
	if len(res) < 2 {
		return 0, errors.New("unexpected response format from Redis")
	}
	switch res[0] {
	case 1:
		return res[1], nil
	case -2:
		return res[1], ErrInsufficientFunds
	default:
		return 0, fmt.Errorf("unknown status from Lua: %d", res[0])
	}
}

// Increment credits account.
func (s *RedisStore) Increment(ctx context.Context, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, balanceKey(account), amount)
	pipe.SAdd(ctx, accountsKey, account)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("credit %s: %w", account, err)
	}
	return incr.Val(), nil
}

// Set overrides the balance of account.
func (s *RedisStore) Set(ctx context.Context, account string, balance int64) error {
	if balance < 0 {
		return ErrNegativeAmount
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, balanceKey(account), balance, 0)
	pipe.SAdd(ctx, accountsKey, account)
	_, err := pipe.Exec(ctx)
	return err
}

// BulkIncrement evaluates bulk_credit.lua with one key per credit.
func (s *RedisStore) BulkIncrement(ctx context.Context, credits []Credit) error {
	if err := validateCredits(credits); err != nil {
		return err
	}
	if len(credits) == 0 {
		return nil
	}
	keys := make([]string, 0, len(credits)+1)
	keys = append(keys, accountsKey)
	args := make([]interface{}, 0, len(credits)*2)
	for _, c := range credits {
		keys = append(keys, balanceKey(c.Account))
		args = append(args, c.Amount, c.Account)
	}
	if err := bulkCreditScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("bulk credit: %w", err)
	}
	return nil
}

// Accounts reads every registered balance and sorts them for the leaderboard.
func (s *RedisStore) Accounts(ctx context.Context) ([]Account, error) {
	ids, err := s.client.SMembers(ctx, accountsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = balanceKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(ids))
	for i, id := range ids {
		var balance int64
		if raw, ok := values[i].(string); ok {
			balance, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode balance %s: %w", id, err)
			}
		}
		accounts = append(accounts, Account{ID: id, Balance: balance})
	}
	sortAccounts(accounts)
	return accounts, nil
}

// ResetAll zeroes every registered balance in one MULTI block.
func (s *RedisStore) ResetAll(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, accountsKey).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Set(ctx, balanceKey(id), 0, 0)
	}
	_, err = pipe.Exec(ctx)
	return err
}
