package planner

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/adapter"
	memApproval "github.com/viant/opsagent/service/approval/memory"
	"github.com/viant/opsagent/service/classifier"
	"github.com/viant/opsagent/service/dispatcher"
	"github.com/viant/opsagent/service/executor"
	"github.com/viant/opsagent/service/processor"
)

type testCatalog struct {
	agents    map[string]*model.Agent
	actions   map[string]*model.Action
	workflows map[string]*model.Workflow
	regions   map[string]int
	templates []*model.Template
}

func (c *testCatalog) Agent(id string) (*model.Agent, bool) {
	ret, ok := c.agents[id]
	return ret, ok
}

func (c *testCatalog) Action(id string) (*model.Action, bool) {
	ret, ok := c.actions[id]
	return ret, ok
}

func (c *testCatalog) Lookup(id string) (*model.Workflow, bool) {
	ret, ok := c.workflows[id]
	return ret, ok
}

func (c *testCatalog) Regions() map[string]int { return c.regions }

func (c *testCatalog) Templates() []*model.Template { return c.templates }

func (c *testCatalog) Template(id string) (*model.Template, bool) {
	for _, template := range c.templates {
		if template.ID == id {
			return template, true
		}
	}
	return nil, false
}

func action(id, next, actionID string) *graph.Action {
	return &graph.Action{Base: graph.Base{ID: id, Next: next}, ActionID: actionID}
}

func newCatalog() *testCatalog {
	agent := func(id string, keywords []string, workflow string, roles ...string) *model.Agent {
		return &model.Agent{ID: id, RequiresApprovalFrom: roles, Capabilities: []*model.Capability{{Name: id, Keywords: keywords, Workflows: []string{workflow}}}}
	}
	catalogAction := func(id, system, duration string) *model.Action {
		return &model.Action{ID: id, Tools: []string{"tool." + id}, Systems: []string{system}, EstimatedDuration: duration}
	}
	return &testCatalog{
		agents: map[string]*model.Agent{
			"product-agent":   agent("product-agent", []string{"launch"}, "launch-wf"),
			"pricing-agent":   agent("pricing-agent", []string{"price", "launch"}, "price-wf", "cfo"),
			"marketing-agent": agent("marketing-agent", []string{"campaign", "discount"}, "campaign-wf"),
			"broken-agent":    agent("broken-agent", []string{"break"}, "broken-wf"),
			"audit-agent":     agent("audit-agent", []string{"audit"}, "price-wf", "cfo"),
		},
		actions: map[string]*model.Action{
			"create":   catalogAction("create", "INVENTORY", "2m"),
			"notify":   catalogAction("notify", "NOTIFICATION", "1m"),
			"calc":     catalogAction("calc", "PRICING", "1m"),
			"update":   catalogAction("update", "POS", "5m"),
			"campaign": catalogAction("campaign", "MARKETING", "1m"),
			"fail":     catalogAction("fail", "POS", "1m"),
		},
		workflows: map[string]*model.Workflow{
			"launch-wf": model.NewWorkflow("launch-wf").WithStart("a1").AddNode(action("a1", "a2", "create"), action("a2", "", "notify")),
			"price-wf": model.NewWorkflow("price-wf").WithStart("p1").AddNode(
				action("p1", "g", "calc"),
				&graph.Approval{Base: graph.Base{ID: "g", Next: "p2"}, Roles: []string{"cfo"}},
				action("p2", "", "update")),
			"campaign-wf": model.NewWorkflow("campaign-wf").WithStart("c1").AddNode(action("c1", "", "campaign")),
			"broken-wf":   model.NewWorkflow("broken-wf").WithStart("x").AddNode(action("x", "", "fail")),
		},
		regions:   map[string]int{Nationwide: 2847, "华东": 892},
		templates: newTemplates(),
	}
}

func newTemplates() []*model.Template {
	pricing := []string{"调价", "涨价", "定价", "竞品"}
	campaign := []string{"活动", "促销", "满减", "优惠"}
	return []*model.Template{
		{ID: "seasonal_new_product", Category: "product", Keywords: []string{"上市", "新品", "发布", "限定"},
			Example: "夏季限定芒果系列产品，6月1日全国上市，定价28元", Defaults: map[string]interface{}{"region": Nationwide, "season": "夏季"}},
		{ID: "holiday_promotion", Category: "campaign", Keywords: campaign,
			Example: "配置春节满100减20活动，1月20日至2月10日，全国门店参与", Defaults: map[string]interface{}{"region": Nationwide}},
		{ID: "inventory_clearance", Category: "supply_chain", Keywords: []string{"清仓", "临期", "库存"},
			Example: "临期产品7折清仓，涉及华北区3个SKU，为期一周，明天生效", Defaults: map[string]interface{}{"duration": "一周", "effective_date": "明天"}},
		{ID: "regional_price_adjust", Category: "pricing", Keywords: pricing,
			Example: "华东区全线汉堡产品涨价5%，下周一生效", Defaults: map[string]interface{}{"category": "全部", "adjust_type": "涨价", "effective_date": "下周一"}},
		{ID: "competitive_pricing", Category: "pricing", Keywords: pricing,
			Example: "川香麻辣鸡腿堡定价比竞品低2元，全国市场", Defaults: map[string]interface{}{"region": Nationwide}},
		{ID: "new_store_opening", Category: "campaign", Keywords: campaign,
			Example: "配置上海新天地店开业促销，全场8折，持续3天，送开业礼品", Defaults: map[string]interface{}{"duration": "3", "gift": "开业礼品"}},
	}
}

var intents = map[string]*model.Intent{
	"launch mango": {Type: "product_launch", RequiredAgents: []string{"product-agent", "pricing-agent"},
		Entities: map[string]interface{}{model.EntityRegion: "华东", model.EntityProductSeries: "芒果系列"}},
	"launch mango at 28 with discount": {Type: "product_launch", RequiredAgents: []string{"product-agent"},
		Entities: map[string]interface{}{model.EntityPrice: 28.0, model.EntityDiscount: map[string]interface{}{"threshold": 100, "reduction": 20}}},
	"launch break": {Type: "product_launch", RequiredAgents: []string{"product-agent", "broken-agent"}},
	"price audit":  {Type: "price_adjust", RequiredAgents: []string{"pricing-agent", "audit-agent"}},
	"check stock":  {Type: "inventory_check"},
	"华东调价":         {Type: "price_adjust", Entities: map[string]interface{}{model.EntityRegion: "华东"}},
	"明天上市":         {Type: "product_launch", Entities: map[string]interface{}{model.EntityDate: map[string]interface{}{"original": "明天", "formatted": "10月20日"}}},
	"川香麻辣鸡腿堡定价比竞品低2元": {Type: "price_adjust", Entities: map[string]interface{}{
		model.EntityProductName:         "川香麻辣鸡腿堡",
		model.EntityCompetitorReference: map[string]interface{}{"type": "lower", "amount": 2.0, "reference": "竞品"}}},
	"campaign": {Type: "campaign_setup", RequiredAgents: []string{"marketing-agent"}, Entities: map[string]interface{}{model.EntityStoreCount: 1500}},
}

type harness struct {
	srv        *Service
	dispatcher *dispatcher.Service
	calls      *int32
}

func newHarness(t *testing.T) *harness {
	aCatalog := newCatalog()
	calls := new(int32)
	backend := adapter.Func(func(ctx context.Context, toolID string, params map[string]interface{}) (*adapter.Result, error) {
		atomic.AddInt32(calls, 1)
		outputs := map[string]map[string]interface{}{
			"tool.create":   {"sku": "SKU-1"},
			"tool.notify":   {"notified": true},
			"tool.calc":     {"newPrice": 26.0},
			"tool.update":   {"applied": true},
			"tool.campaign": {"campaignId": "C-1"},
		}
		if output, ok := outputs[toolID]; ok {
			return &adapter.Result{Success: true, Output: output}, nil
		}
		return &adapter.Result{Success: false, Error: toolID + " failed"}, nil
	})
	engine, err := processor.New(aCatalog, executor.New(aCatalog, backend), processor.WithApprovalService(memApproval.New()))
	require.NoError(t, err)
	tasks, err := dispatcher.New(aCatalog, engine)
	require.NoError(t, err)
	classify := classifier.Func(func(ctx context.Context, text string) (*model.Intent, error) {
		intent, ok := intents[text]
		if !ok {
			return nil, fmt.Errorf("cannot classify %q", text)
		}
		return intent.Clone(), nil
	})
	srv, err := New(classify, aCatalog, tasks, WithExecutions(engine))
	require.NoError(t, err)
	return &harness{srv: srv, dispatcher: tasks, calls: calls}
}

func (h *harness) statuses(t *testing.T, session *model.Session) []state.Status {
	var ret []state.Status
	for _, taskID := range session.Tasks {
		task, err := h.dispatcher.Task(context.Background(), taskID)
		require.NoError(t, err)
		ret = append(ret, task.Status)
	}
	return ret
}

func TestService_Process(t *testing.T) {
	testCases := []struct {
		description    string
		text           string
		expectStatus   state.Status
		expectAgents   []string
		expectTasks    []state.Status
		expectPending  []int
		expectKind     types.Kind
		expectUnitTask int
		expectContext  map[string]interface{}
	}{
		{
			description:   "second agent pauses the session",
			text:          "launch mango",
			expectStatus:  state.StatusAwaitingApproval,
			expectAgents:  []string{"product-agent", "pricing-agent"},
			expectTasks:   []state.Status{state.StatusSuccess, state.StatusAwaitingApproval},
			expectPending: []int{1},
			expectContext: map[string]interface{}{"sku": "SKU-1", model.EntityRegion: "华东"},
		},
		{
			description:   "entities pull in agents",
			text:          "launch mango at 28 with discount",
			expectStatus:  state.StatusAwaitingApproval,
			expectAgents:  []string{"product-agent", "pricing-agent", "marketing-agent"},
			expectTasks:   []state.Status{state.StatusSuccess, state.StatusAwaitingApproval, state.StatusSuccess},
			expectPending: []int{1},
		},
		{
			description:    "task failure fails the session",
			text:           "launch break",
			expectStatus:   state.StatusError,
			expectAgents:   []string{"product-agent", "broken-agent"},
			expectTasks:    []state.Status{state.StatusSuccess, state.StatusError},
			expectKind:     types.KindAdapterFailure,
			expectUnitTask: 1,
		},
		{
			description:   "single agent succeeds",
			text:          "campaign",
			expectStatus:  state.StatusSuccess,
			expectAgents:  []string{"marketing-agent"},
			expectTasks:   []state.Status{state.StatusSuccess},
			expectContext: map[string]interface{}{"campaignId": "C-1"},
		},
		{
			description:    "classification failure",
			text:           "gibberish",
			expectStatus:   state.StatusError,
			expectUnitTask: -1,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			session, err := h.srv.Process(ctx, testCase.text)
			require.NotNil(t, session)
			assert.Equal(t, testCase.expectStatus, session.Status, session.Error)
			if testCase.expectAgents != nil {
				assert.Equal(t, testCase.expectAgents, session.Plan.Agents())
			}
			assert.Equal(t, testCase.expectTasks, h.statuses(t, session))
			var pending []string
			for _, i := range testCase.expectPending {
				pending = append(pending, session.Tasks[i])
			}
			assert.Equal(t, pending, session.PendingApprovals)
			switch {
			case testCase.expectUnitTask > 0:
				require.Error(t, err)
				assert.Equal(t, testCase.expectKind, types.KindOf(err))
				assert.Equal(t, session.Tasks[testCase.expectUnitTask], session.ErrorUnitID)
				assert.NotEmpty(t, session.Error)
			case testCase.expectUnitTask < 0:
				require.Error(t, err)
				assert.Equal(t, session.ID, session.ErrorUnitID)
			default:
				assert.NoError(t, err)
			}
			for k, v := range testCase.expectContext {
				assert.EqualValues(t, v, session.Context[k], k)
			}
			if session.Status == state.StatusSuccess {
				assert.Contains(t, session.Summary, "campaign-wf: 1 nodes")
				assert.Equal(t, "intent: campaign_setup, 1 agents, 1 workflows", session.Brief)
			}
			stored, err := h.srv.Session(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, session.Status, stored.Status)
		})
	}
}

func TestService_ApproveSession(t *testing.T) {
	testCases := []struct {
		description  string
		approved     bool
		expectStatus state.Status
		expectTasks  []state.Status
	}{
		{description: "approve completes", approved: true, expectStatus: state.StatusSuccess, expectTasks: []state.Status{state.StatusSuccess, state.StatusSuccess}},
		{description: "reject rejects", approved: false, expectStatus: state.StatusRejected, expectTasks: []state.Status{state.StatusSuccess, state.StatusRejected}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			session, err := h.srv.Process(ctx, "launch mango")
			require.NoError(t, err)
			require.Equal(t, state.StatusAwaitingApproval, session.Status)

			session, err = h.srv.ApproveSession(ctx, session.ID, testCase.approved, "cfo")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, session.Status)
			assert.Equal(t, testCase.expectTasks, h.statuses(t, session))
			assert.Empty(t, session.PendingApprovals)
			assert.Equal(t, "cfo", session.Approver)
			assert.NotNil(t, session.CompletedAt)
			if testCase.approved {
				assert.Equal(t, true, session.Context["applied"])
				assert.Contains(t, session.Summary, "price-wf: 3 nodes")
				assert.Equal(t, "intent: product_launch, 2 agents, 2 workflows", session.Brief)
			}

			_, err = h.srv.ApproveSession(ctx, session.ID, true, "cfo")
			assert.Equal(t, types.KindInvalidState, types.KindOf(err))
		})
	}
}

// lostTaskDispatcher cannot find one task when it is resumed.
type lostTaskDispatcher struct {
	*dispatcher.Service
	taskID string
}

func (d *lostTaskDispatcher) ResumeTask(ctx context.Context, taskID string, approved bool, approver string) (*model.Task, error) {
	if taskID == d.taskID {
		return nil, types.NewNotFoundError("dispatcher.ResumeTask", "task", taskID)
	}
	return d.Service.ResumeTask(ctx, taskID, approved, approver)
}

func TestService_ApproveSession_ResolvesRemainingTasks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, err := h.srv.Process(ctx, "price audit")
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, session.Status)
	require.Len(t, session.PendingApprovals, 2)

	lost := session.PendingApprovals[0]
	h.srv.dispatcher = &lostTaskDispatcher{Service: h.dispatcher, taskID: lost}
	session, err = h.srv.ApproveSession(ctx, session.ID, true, "cfo")
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	assert.Equal(t, state.StatusError, session.Status)
	assert.Equal(t, lost, session.ErrorUnitID)
	assert.Equal(t, []state.Status{state.StatusAwaitingApproval, state.StatusSuccess}, h.statuses(t, session))
}

func TestService_ResumeTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, err := h.srv.Process(ctx, "price audit")
	require.NoError(t, err)
	require.Len(t, session.PendingApprovals, 2)
	first, second := session.PendingApprovals[0], session.PendingApprovals[1]

	session, err = h.srv.ResumeTask(ctx, session.ID, first, true, "cfo")
	require.NoError(t, err)
	assert.Equal(t, state.StatusAwaitingApproval, session.Status)
	assert.Equal(t, []string{second}, session.PendingApprovals)
	assert.Equal(t, []state.Status{state.StatusSuccess, state.StatusAwaitingApproval}, h.statuses(t, session))

	_, err = h.srv.ResumeTask(ctx, session.ID, first, true, "cfo")
	assert.Equal(t, types.KindInvalidState, types.KindOf(err))

	session, err = h.srv.ResumeTask(ctx, session.ID, second, false, "cfo")
	require.NoError(t, err)
	assert.Equal(t, state.StatusRejected, session.Status)
	assert.Equal(t, []state.Status{state.StatusSuccess, state.StatusRejected}, h.statuses(t, session))
}

func TestService_ApproveSession_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.srv.ApproveSession(context.Background(), "ses-missing", true, "cfo")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestService_Preview(t *testing.T) {
	testCases := []struct {
		description     string
		text            string
		expectAgents    []string
		expectWorkflows []string
		expectSteps     []string
		expectImpact    *model.Impact
	}{
		{
			description:     "regional launch",
			text:            "launch mango",
			expectAgents:    []string{"product-agent", "pricing-agent"},
			expectWorkflows: []string{"launch-wf", "price-wf"},
			expectSteps:     []string{"launch-wf/a1", "launch-wf/a2", "price-wf/p1", "price-wf/p2"},
			expectImpact: &model.Impact{
				Region:            "华东",
				AffectedStores:    892,
				AffectedSKUs:      5,
				AffectedSystems:   []string{"INVENTORY", "NOTIFICATION", "POS", "PRICING"},
				EstimatedMinutes:  60,
				EstimatedDuration: "1.0 h",
				RequiresApproval:  true,
				ApprovalRoles:     []string{"cfo"},
			},
		},
		{
			description:     "store count overrides the region",
			text:            "campaign",
			expectAgents:    []string{"marketing-agent"},
			expectWorkflows: []string{"campaign-wf"},
			expectSteps:     []string{"campaign-wf/c1"},
			expectImpact: &model.Impact{
				Region:            Nationwide,
				AffectedStores:    1500,
				AffectedSKUs:      1,
				AffectedSystems:   []string{"MARKETING"},
				EstimatedMinutes:  36,
				EstimatedDuration: "36 min",
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			preview, err := h.srv.Preview(ctx, testCase.text)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectAgents, preview.RequiredAgents)
			assert.Equal(t, testCase.expectWorkflows, preview.SuggestedWorkflows)
			var steps []string
			for i, step := range preview.Steps {
				assert.Equal(t, i+1, step.Step)
				steps = append(steps, step.WorkflowID+"/"+step.NodeID)
			}
			assert.Equal(t, testCase.expectSteps, steps)
			assert.Equal(t, testCase.expectImpact, preview.Impact)

			assert.Zero(t, atomic.LoadInt32(h.calls))
			sessions, err := h.srv.Sessions(ctx)
			require.NoError(t, err)
			assert.Empty(t, sessions)
		})
	}
}

func TestInstruction(t *testing.T) {
	assert.Equal(t, "raise price", Instruction("raise price", nil))
	assert.Equal(t, "raise price [entities: price=28, region=华东]", Instruction("raise price", map[string]interface{}{"region": "华东", "price": 28.0}))
}

func TestMatchTemplate(t *testing.T) {
	testCases := []struct {
		description string
		text        string
		expect      string
	}{
		{description: "seasonal launch", text: "夏季限定芒果系列产品上市", expect: "seasonal_new_product"},
		{description: "holiday promotion", text: "春节满100减20活动", expect: "holiday_promotion"},
		{description: "clearance", text: "临期产品清仓", expect: "inventory_clearance"},
		{description: "regional price", text: "华东调价", expect: "regional_price_adjust"},
		{description: "competitor price", text: "川香麻辣鸡腿堡比竞品低2元", expect: "competitive_pricing"},
		{description: "store opening", text: "新天地店开业促销", expect: "new_store_opening"},
		{description: "no match", text: "check stock"},
	}
	templates := newTemplates()
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual := MatchTemplate(templates, testCase.text)
			if testCase.expect == "" {
				assert.Nil(t, actual)
				return
			}
			require.NotNil(t, actual)
			assert.Equal(t, testCase.expect, actual.ID)
		})
	}
}

func TestService_Enrich(t *testing.T) {
	testCases := []struct {
		description      string
		text             string
		expectTemplate   string
		expectNormalized string
		expectLevel      string
		expectEntities   map[string]interface{}
	}{
		{
			description:      "simple without template",
			text:             "check stock",
			expectNormalized: "check stock",
			expectLevel:      model.ComplexitySimple,
			expectEntities:   map[string]interface{}{},
		},
		{
			description:      "medium with template defaults",
			text:             "华东调价",
			expectTemplate:   "regional_price_adjust",
			expectNormalized: "华东调价",
			expectLevel:      model.ComplexityMedium,
			expectEntities:   map[string]interface{}{model.EntityRegion: "华东", "category": "全部", "adjust_type": "涨价", "effective_date": "下周一"},
		},
		{
			description:      "relative date replaced",
			text:             "明天上市",
			expectTemplate:   "seasonal_new_product",
			expectNormalized: "10月20日上市",
			expectLevel:      model.ComplexityMedium,
		},
		{
			description:      "complex competitor strategy",
			text:             "川香麻辣鸡腿堡定价比竞品低2元",
			expectTemplate:   "competitive_pricing",
			expectNormalized: "川香麻辣鸡腿堡定价比竞品低2元 (实际策略: 比竞品低2元)",
			expectLevel:      model.ComplexityComplex,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t)
			actual, err := h.srv.Enrich(context.Background(), testCase.text)
			require.NoError(t, err)
			assert.Equal(t, testCase.text, actual.Input)
			assert.Equal(t, testCase.expectNormalized, actual.Normalized)
			assert.Equal(t, testCase.expectLevel, actual.Complexity)
			if testCase.expectTemplate == "" {
				assert.Nil(t, actual.Template)
			} else {
				require.NotNil(t, actual.Template)
				assert.Equal(t, testCase.expectTemplate, actual.Template.ID)
			}
			if testCase.expectEntities != nil {
				assert.Equal(t, testCase.expectEntities, actual.Entities)
			}
		})
	}
	_, err := newHarness(t).srv.Enrich(context.Background(), "unknown request")
	assert.Error(t, err)
}

func TestComplexity(t *testing.T) {
	testCases := []struct {
		description string
		entities    map[string]interface{}
		expect      string
	}{
		{description: "no entities", expect: model.ComplexitySimple},
		{description: "one entity", entities: map[string]interface{}{model.EntityPrice: 28.0}, expect: model.ComplexitySimple},
		{description: "nationwide region", entities: map[string]interface{}{model.EntityRegion: Nationwide}, expect: model.ComplexityMedium},
		{description: "series", entities: map[string]interface{}{model.EntityProductSeries: "芒果系列", model.EntityPrice: 28.0}, expect: model.ComplexityMedium},
		{description: "series nationwide", entities: map[string]interface{}{model.EntityProductSeries: "芒果系列", model.EntityRegion: Nationwide, model.EntityPrice: 28.0}, expect: model.ComplexityComplex},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Complexity(testCase.entities))
		})
	}
}

func TestService_Template(t *testing.T) {
	h := newHarness(t)
	assert.Len(t, h.srv.Templates(), 6)
	template, err := h.srv.Template("competitive_pricing")
	require.NoError(t, err)
	assert.Equal(t, "pricing", template.Category)
	_, err = h.srv.Template("missing")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}
