package transaction

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quesster/client-sdk-go/services"
	"github.com/quesster/client-sdk-go/services/commitment"
	"github.com/quesster/client-sdk-go/types"
	"github.com/quesster/client-sdk-go/utils"
)

// Kind 交易意图类型
type Kind string

const (
	KindApprove    Kind = "approve"
	KindJoin       Kind = "join"
	KindCreate     Kind = "create"
	KindMint       Kind = "mint"
	KindDistribute Kind = "distribute"
	KindWithdraw   Kind = "withdraw"
)

// Intent 待提交的交易意图；仅在提交期间存在，不持久化
type Intent struct {
	Kind Kind
	To   common.Address
	Data []byte

	// Gas 固定 gas 上限，0 表示由钱包估算
	Gas uint64

	FeeCurrency *common.Address

	// Commitments join/create 携带的承诺值（按题目顺序）
	Commitments []commitment.Commitment
}

// Builder 按 gas 策略构建 Intent
type Builder struct {
	config *services.Config
}

// NewBuilder 创建 Builder；config 为 nil 时使用默认配置
func NewBuilder(config *services.Config) *Builder {
	if config == nil {
		config = services.DefaultConfig()
	}
	return &Builder{config: config}
}

// Approve 授权游戏合约扣取 amount；gas 以 cUSD 支付
func (b *Builder) Approve(amount *big.Int) (*Intent, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, types.NewValidationError(types.CodeInvalidFee, "Approval amount must be positive.")
	}
	data, err := utils.PackCall(utils.ERC20ABI, utils.MethodApprove, b.config.GameAddress, amount)
	if err != nil {
		return nil, err
	}
	feeCurrency := b.config.TokenAddress
	return &Intent{
		Kind:        KindApprove,
		To:          b.config.TokenAddress,
		Data:        data,
		Gas:         b.config.Gas.Approve,
		FeeCurrency: &feeCurrency,
	}, nil
}

// Join 提交每日任务答案承诺
func (b *Builder) Join(commits []commitment.Commitment) (*Intent, error) {
	if len(commits) == 0 {
		return nil, types.NewValidationError(types.CodeAnswersIncomplete, "Please answer all questions!")
	}
	data, err := utils.PackCall(utils.QuestGameABI, utils.MethodJoinQuest, commitment.Bytes32(commits))
	if err != nil {
		return nil, err
	}
	return &Intent{
		Kind:        KindJoin,
		To:          b.config.GameAddress,
		Data:        data,
		Gas:         b.config.Gas.Join,
		Commitments: commits,
	}, nil
}

// Create 创建社区任务
func (b *Builder) Create(entryFee *big.Int, durationHours uint64, commits []commitment.Commitment) (*Intent, error) {
	if entryFee == nil || entryFee.Sign() <= 0 {
		return nil, types.NewValidationError(types.CodeInvalidFee, "Entry fee must be positive.")
	}
	if durationHours == 0 {
		return nil, types.NewValidationError(types.CodeInvalidDuration, "Duration must be at least one hour.")
	}
	if len(commits) == 0 {
		return nil, types.NewValidationError(types.CodeQuestionIncomplete, "Add at least one question.")
	}
	data, err := utils.PackCall(utils.QuestGameABI, utils.MethodCreateCommunityQuest,
		entryFee, new(big.Int).SetUint64(durationHours), commitment.Bytes32(commits))
	if err != nil {
		return nil, err
	}
	return &Intent{
		Kind:        KindCreate,
		To:          b.config.GameAddress,
		Data:        data,
		Gas:         b.config.Gas.Create,
		Commitments: commits,
	}, nil
}

// MintBadge 铸造徽章；gas 交给钱包估算
func (b *Builder) MintBadge() (*Intent, error) {
	data, err := utils.PackCall(utils.BadgesABI, utils.MethodMintBadge)
	if err != nil {
		return nil, err
	}
	return &Intent{Kind: KindMint, To: b.config.BadgesAddress, Data: data, Gas: b.config.Gas.Mint}, nil
}

// DistributeRewards 管理员分发奖励；合约内循环，使用更高的固定 gas
func (b *Builder) DistributeRewards(questID *big.Int) (*Intent, error) {
	if questID == nil || questID.Sign() < 0 {
		return nil, types.NewValidationError(types.CodeInvalidQuest, "Invalid quest id.")
	}
	data, err := utils.PackCall(utils.QuestGameABI, utils.MethodDistributeRewards, questID)
	if err != nil {
		return nil, err
	}
	return &Intent{Kind: KindDistribute, To: b.config.GameAddress, Data: data, Gas: b.config.Gas.Distribute}, nil
}

// Withdraw 管理员提取奖池
func (b *Builder) Withdraw() (*Intent, error) {
	data, err := utils.PackCall(utils.QuestGameABI, utils.MethodWithdraw)
	if err != nil {
		return nil, err
	}
	return &Intent{Kind: KindWithdraw, To: b.config.GameAddress, Data: data, Gas: b.config.Gas.Withdraw}, nil
}

func (i *Intent) String() string {
	return fmt.Sprintf("%s(to=%s gas=%d)", i.Kind, i.To.Hex(), i.Gas)
}
