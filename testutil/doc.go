/*
Package testutil 提供 LanMirror 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 文件树: WriteTree / TempTree，按斜杠路径写出暂存目录
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/fixtures: Web 构建包与暂存目录的样例数据，以及可注入
    读取失败的 FailingFS
  - testutil/mocks: 地址解析器与资源暂存器的 Mock 实现
*/
package testutil
